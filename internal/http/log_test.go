package handlers_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthLogging(t *testing.T) {
	ta := newTestApp(t)
	c := ta.client(t)

	entries := captureLogs(t, func() {
		c.do("POST", "/api/v1/auth/login", map[string]string{"email": "siti@tokoku.test", "password": "nope"})
		c.login("siti@tokoku.test")
	})

	fail, ok := findAction(entries, "auth.login.fail")
	require.True(t, ok, "failed login not logged")
	assert.Equal(t, "warn", fail.Level)
	assert.NotContains(t, fail.Fields, "password")

	okEntry, ok := findAction(entries, "auth.login.success")
	require.True(t, ok, "login not audited")
	assert.Equal(t, "audit", okEntry.Level)
	assert.Equal(t, "u-siti", okEntry.UserID)
}

func TestAccessDeniedLogs(t *testing.T) {
	ta := newTestApp(t)
	user := ta.client(t)
	user.login("budi@tokoku.test")

	entries := captureLogs(t, func() {
		assert.Equal(t, fiber.StatusForbidden, user.do("GET", "/api/v1/admin/orders", nil).StatusCode)
	})
	e, ok := findAction(entries, "access.denied.admin")
	require.True(t, ok)
	assert.Equal(t, "u-budi", e.UserID)

	access, ok := findAction(entries, "http.access")
	require.True(t, ok)
	assert.Equal(t, fiber.StatusForbidden, access.Status)
}

func TestAdminInventoryLogs(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.client(t)
	admin.login("admin@tokoku.test")

	entries := captureLogs(t, func() {
		resp := admin.do("POST", "/api/v1/admin/products/teh-melati/stock", map[string]any{"delta": -2, "note": "expired"})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
	e, ok := findAction(entries, "admin.stock.adjust")
	require.True(t, ok)
	assert.Equal(t, "audit", e.Level)
	assert.Equal(t, "teh-melati", e.Fields["product"])
	assert.EqualValues(t, -2, e.Fields["delta"])
}

func TestServerErrorsAreLogged(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.db.Close())

	entries := captureLogs(t, func() {
		resp := ta.client(t).do("GET", "/api/v1/products/kopi-susu", nil)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
	e, ok := findAction(entries, "server.error")
	require.True(t, ok)
	assert.Equal(t, "error", e.Level)
}
