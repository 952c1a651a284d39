package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Treasury"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		// Driver is "postgres" or "memory". The memory driver keeps nothing
		// across restarts.
		Driver   string `envconfig:"DB_DRIVER" default:"postgres"`
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"treasury"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Migrations struct {
		Auto bool `envconfig:"MIGRATIONS_AUTO" default:"true"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"text"`
	}

	Auth struct {
		Secret string        `envconfig:"SECRET_KEY" required:"true"`
		Expiry time.Duration `envconfig:"ACCESS_TOKEN_EXPIRE" default:"192h"`
	}

	Bootstrap struct {
		Username string `envconfig:"FIRST_SUPERUSER"`
		Password string `envconfig:"FIRST_SUPERUSER_PASSWORD"`
	}

	CORS struct {
		Origins []string `envconfig:"BACKEND_CORS_ORIGINS"`
	}

	Discord struct {
		ClientID     string `envconfig:"DISCORD_CLIENT_ID"`
		ClientSecret string `envconfig:"DISCORD_CLIENT_SECRET"`
		RedirectURL  string `envconfig:"DISCORD_REDIRECT_URL"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// LogLevel maps Log.Level to a slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return slog.LevelInfo
	}

	return level
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Auth.Secret == "" {
		return nil, errors.New("SECRET_KEY must not be empty")
	}

	switch cfg.DB.Driver {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DB.Driver)
	}

	if (cfg.Bootstrap.Username == "") != (cfg.Bootstrap.Password == "") {
		return nil, errors.New("FIRST_SUPERUSER and FIRST_SUPERUSER_PASSWORD must be set together")
	}

	return &cfg, nil
}
