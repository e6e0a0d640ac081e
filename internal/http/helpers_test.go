package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"tokoku/internal/auth"
	"tokoku/internal/config"
	"tokoku/internal/http/handlers"
	applog "tokoku/internal/log"
	"tokoku/internal/query"
	"tokoku/internal/repos"
	"tokoku/internal/storage"
)

type testApp struct {
	app   *fiber.App
	db    *sqlx.DB
	deps  *handlers.Deps
	media string
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWith(t, handlers.DefaultLimits())
}

// newTestAppWith wires the full application over a seeded in-memory
// database and a temporary media directory.
func newTestAppWith(t *testing.T, lim handlers.Limits) *testApp {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	media := t.TempDir()
	cfg := config.Config{
		MediaDir:       media,
		PublicBaseURL:  "http://shop.test",
		UploadMaxBytes: 64 << 10,
		Version:        "1.2.3",
	}
	reg := prometheus.NewRegistry()
	q := query.NewClient(query.WithMetrics(query.NewMetrics(reg)))
	tokens := auth.NewTokens(strings.Repeat("k", 32), time.Hour)
	svc := handlers.NewServices(db, q, nil, tokens)
	store := storage.NewService(storage.NewLocalBackend(media, cfg.PublicBaseURL), cfg.UploadMaxBytes)
	deps := handlers.NewDeps(cfg, svc, store, reg)
	return &testApp{app: handlers.NewApp(deps, lim), db: db, deps: deps, media: media}
}

// client keeps the sid cookie between requests like a browser would.
type client struct {
	t     *testing.T
	ta    *testApp
	sid   string
	token string
}

func (ta *testApp) client(t *testing.T) *client {
	return &client{t: t, ta: ta}
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(c.t, err)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

func (c *client) send(req *http.Request) *http.Response {
	c.t.Helper()
	if c.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: c.sid})
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.ta.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == "sid" && ck.Value != "" {
			c.sid = ck.Value
		}
	}
	return resp
}

func (c *client) login(email string) {
	c.t.Helper()
	resp := c.do("POST", "/api/v1/auth/login", map[string]string{"email": email, "password": "Passw0rd!"})
	require.Equal(c.t, fiber.StatusOK, resp.StatusCode)
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Status int            `json:"status"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs collects the structured log lines written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	applog.SetOutput(buf)
	defer applog.SetOutput(io.Discard)

	fn()

	buf.mu.Lock()
	defer buf.mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findAction(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
