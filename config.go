package cudatel

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/cudatel/core/config"
	"github.com/dmitrymomot/cudatel/core/logger"
	"github.com/dmitrymomot/cudatel/core/tunnel"
)

// Store backends selectable with CUDATEL_STORE.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreS3       = "s3"
)

// Config is the process-wide client configuration.
type Config struct {
	Env           string        `env:"CUDATEL_ENV" envDefault:"local"`
	Store         string        `env:"CUDATEL_STORE" envDefault:"file"`
	SessionFile   string        `env:"CUDATEL_SESSION_FILE" envDefault:"sessions.json"`
	SessionTTL    time.Duration `env:"CUDATEL_SESSION_TTL" envDefault:"0s"`
	MongoDatabase string        `env:"CUDATEL_MONGO_DATABASE" envDefault:"cudatel"`
	Timeout       time.Duration `env:"CUDATEL_TIMEOUT" envDefault:"30s"`
	LoginRetry    time.Duration `env:"CUDATEL_LOGIN_RETRY_DELAY" envDefault:"250ms"`
	LogLevel      string        `env:"CUDATEL_LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"CUDATEL_LOG_FORMAT" envDefault:"text"`
	EventBuffer   int           `env:"CUDATEL_EVENT_BUFFER" envDefault:"64"`
	EventWorkers  int           `env:"CUDATEL_EVENT_WORKERS" envDefault:"1"`
}

// Profile is the per-environment target: CUDATEL_<ENV>_HOST and friends.
type Profile struct {
	Host   string `env:"HOST"`
	Scheme string `env:"SCHEME" envDefault:"http"`
	User   string `env:"USER"`
	Pass   string `env:"PASS"`
}

// Credentials returns the profile's default credentials.
func (p Profile) Credentials() tunnel.Credentials {
	return tunnel.Credentials{User: p.User, Pass: p.Pass}
}

// LoadConfig reads Config from the environment and .env.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, errors.Join(tunnel.ErrConfiguration, err)
	}
	return cfg, nil
}

// LoadProfile reads the profile of env, e.g. CUDATEL_LOCAL_HOST for "local".
func LoadProfile(env string) (Profile, error) {
	env = strings.ToUpper(strings.TrimSpace(env))
	if env == "" {
		return Profile{}, errors.Join(tunnel.ErrConfiguration, errors.New("environment name is empty"))
	}

	var p Profile
	if err := config.LoadPrefixed(&p, ProfilePrefix(env)); err != nil {
		return Profile{}, errors.Join(tunnel.ErrConfiguration, err)
	}
	if strings.TrimSpace(p.Host) == "" {
		return Profile{}, errors.Join(tunnel.ErrConfiguration,
			errors.New("host is not set: "+ProfilePrefix(env)+"HOST"))
	}
	return p, nil
}

// ProfilePrefix returns the env var prefix for env.
func ProfilePrefix(env string) string {
	return "CUDATEL_" + strings.ToUpper(env) + "_"
}

// NewLogger builds the client logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithAttr(logger.Component("cudatel"), slog.String("env", cfg.Env)),
	}
	if strings.EqualFold(cfg.LogFormat, "json") {
		opts = append(opts, logger.WithJSONFormatter())
	} else {
		opts = append(opts, logger.WithTextFormatter())
	}
	return logger.New(opts...)
}
