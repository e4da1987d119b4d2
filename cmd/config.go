package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. SHIPTRACK_HTTP_PORT.
const EnvPrefix = "SHIPTRACK"

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DBDriverMemory   = "memory"
)

type Config struct {
	LogLevel string `split_words:"true" default:"info"`

	HTTP     HTTPConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Realtime RealtimeConfig
}

type HTTPConfig struct {
	Port            string        `default:"8082"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

type DBConfig struct {
	Driver string `default:"postgres"`
	DSN    string

	Host     string `default:"localhost"`
	Port     string `default:"5432"`
	User     string `default:"postgres"`
	Password string
	Name     string `default:"shiptrack"`
	SSLMode  string `default:"disable"`

	MaxOpenConns    int           `split_words:"true" default:"20"`
	MaxIdleConns    int           `split_words:"true" default:"10"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"1h"`
	AutoMigrate     bool          `split_words:"true" default:"true"`
}

// ConnectionString returns DSN when set, otherwise a DSN built from the
// individual settings of the selected driver.
func (c DBConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == DBDriverSQLite {
		return "file:shiptrack.db?_busy_timeout=5000"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	URL          string
	Address      string
	Password     string
	DB           int           `default:"0"`
	Channel      string        `default:"shiptrack:broadcasts"`
	DialTimeout  time.Duration `split_words:"true" default:"5s"`
	ReadTimeout  time.Duration `split_words:"true" default:"5s"`
	WriteTimeout time.Duration `split_words:"true" default:"5s"`
}

// Enabled reports whether a backplane is configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Address != ""
}

type JWTConfig struct {
	Secret string
	Issuer string        `default:"shiptrack"`
	TTL    time.Duration `default:"24h"`
}

func (c JWTConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("%s_JWT_SECRET is required", EnvPrefix)
	}
	return nil
}

type RealtimeConfig struct {
	BindPublisher  bool     `split_words:"true" default:"true"`
	Shards         int      `default:"32"`
	SendBuffer     int      `split_words:"true" default:"64"`
	AllowedOrigins []string `split_words:"true"`
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	switch cfg.DB.Driver {
	case DBDriverPostgres, DBDriverSQLite, DBDriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported %s_DB_DRIVER %q", EnvPrefix, cfg.DB.Driver)
	}
	return cfg, nil
}

// NewLogger builds the process logger at the configured level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
