package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort           string
	DBDriver           string
	DatabaseURL        string
	JWTSecret          string
	TokenTTL           time.Duration
	BcryptCost         int
	AllowedOrigins     []string
	RedisURL           string
	LogLevel           string
	StudentEmailDomain string
	LoginPerMin        int
	ApplyPerMin        int
	TrustProxy         bool
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxIdle      time.Duration
	DBConnMaxLife      time.Duration
	RequestTimeout     time.Duration
}

const minBcryptCost = 10

var supportedDrivers = map[string]bool{"pgx": true, "postgres": true, "sqlite3": true}

// Load reads .env (when present), an optional CONFIG_FILE and the process
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		HTTPPort:           v.GetString("HTTP_PORT"),
		DBDriver:           strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		DatabaseURL:        strings.TrimSpace(v.GetString("DATABASE_URL")),
		JWTSecret:          strings.TrimSpace(v.GetString("JWT_SECRET")),
		TokenTTL:           v.GetDuration("TOKEN_TTL"),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		AllowedOrigins:     splitList(v.GetString("ALLOWED_ORIGINS")),
		RedisURL:           strings.TrimSpace(v.GetString("REDIS_URL")),
		LogLevel:           v.GetString("LOG_LEVEL"),
		StudentEmailDomain: strings.ToLower(strings.TrimSpace(v.GetString("STUDENT_EMAIL_DOMAIN"))),
		LoginPerMin:        v.GetInt("LOGIN_RATE_LIMIT_PER_MIN"),
		ApplyPerMin:        v.GetInt("APPLY_RATE_LIMIT_PER_MIN"),
		TrustProxy:         v.GetBool("TRUST_PROXY"),
		DBMaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxIdle:      v.GetDuration("DB_CONN_MAX_IDLE"),
		DBConnMaxLife:      v.GetDuration("DB_CONN_MAX_LIFE"),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if !supportedDrivers[c.DBDriver] {
		return fmt.Errorf("DB_DRIVER %q is not supported (pgx, postgres, sqlite3)", c.DBDriver)
	}
	if c.BcryptCost < minBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be at least %d", minBcryptCost)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DB_DRIVER", "pgx")
	v.SetDefault("TOKEN_TTL", 24*time.Hour)
	v.SetDefault("BCRYPT_COST", minBcryptCost)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOGIN_RATE_LIMIT_PER_MIN", 10)
	v.SetDefault("APPLY_RATE_LIMIT_PER_MIN", 5)
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_IDLE", 5*time.Minute)
	v.SetDefault("DB_CONN_MAX_LIFE", 30*time.Minute)
	v.SetDefault("REQUEST_TIMEOUT", 10*time.Second)
}

func splitList(value string) []string {
	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
