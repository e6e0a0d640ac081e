package config

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	applog "tokoku/internal/log"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	DBDSN    string `envconfig:"DB_DSN" default:"tokoku.db"` // sqlite file in project root
	MediaDir string `envconfig:"MEDIA_DIR" default:"./web/media"`
	LogFile  string `envconfig:"LOG_FILE"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	JWTSecret      string        `envconfig:"JWT_SECRET"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`

	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"local"` // local|s3
	S3Region       string `envconfig:"S3_REGION" default:"ap-southeast-1"`
	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3BucketPrefix string `envconfig:"S3_BUCKET_PREFIX" default:"tokoku-"`
	PublicBaseURL  string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	UploadMaxBytes int64  `envconfig:"UPLOAD_MAX_BYTES" default:"2097152"`

	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheSize int           `envconfig:"CACHE_SIZE" default:"4096"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"tokoku-events"`

	Version string `envconfig:"VERSION" default:"0.1.0"`
}

// Load reads the environment. A missing JWT_SECRET is replaced by a random
// per-process secret so tokens simply stop validating after a restart.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: read environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return Config{}, errors.Wrap(err, "config: generate jwt secret")
		}
		cfg.JWTSecret = hex.EncodeToString(buf)
		applog.L().Warn().Msg("[config] JWT_SECRET not set, using an ephemeral secret")
	}

	applog.L().Info().
		Str("port", cfg.Port).
		Str("db_dsn", cfg.DBDSN).
		Str("media_dir", cfg.MediaDir).
		Str("storage", cfg.StorageBackend).
		Strs("kafka_brokers", cfg.KafkaBrokers).
		Str("version", cfg.Version).
		Msg("[config] loaded")
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := semver.NewVersion(c.Version); err != nil {
		return errors.Wrapf(err, "config: VERSION %q", c.Version)
	}
	switch strings.ToLower(c.StorageBackend) {
	case "local", "s3":
	default:
		return errors.Errorf("config: unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return errors.New("config: JWT_SECRET must be at least 32 characters long")
	}
	if c.UploadMaxBytes <= 0 {
		return errors.New("config: UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}

// KafkaEnabled reports whether an event bus is configured.
func (c Config) KafkaEnabled() bool {
	for _, b := range c.KafkaBrokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}
