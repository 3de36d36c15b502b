package config // package config loads application configuration from environment variables

import (
	"errors"  // errors.Join reports every configuration problem at once
	"fmt"     // fmt formats configuration errors
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings normalizes values
	"time"    // time parses token lifetimes
)

// Storage backends understood by the server.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets for access and refresh tokens are kept
// apart so that leaking one cannot be used to forge the other kind.
type Config struct {
	Env              string        // application environment (development/production)
	Port             string        // HTTP port to listen on
	Storage          string        // mysql or memory
	DBUser           string        // database username
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	DBMigrate        bool          // apply embedded migrations on start
	JWTSecret        string        // secret used to sign access tokens
	JWTRefreshSecret string        // secret used to sign refresh tokens
	AccessTTL        time.Duration // access token lifetime
	RefreshTTL       time.Duration // refresh token lifetime
	BcryptCost       int           // bcrypt cost for password hashing
	CORSOrigin       string        // allowed browser origin
	LegacyRoutes     bool          // also mount task routes at /api
	RabbitURL        string        // broker URL for task events; empty disables publishing
	TaskEventsQueue  string        // queue receiving task events
	LogLevel         string        // debug, info, warn or error
}

// IsProduction reports whether the server runs with production settings
// (secure cookies, JSON logs).
func (c Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration values from environment variables and returns a
// Config.  Missing or malformed values are collected and returned together
// so that operators can fix them in one pass.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		Env:              envStr("APP_ENV", "development"),
		Port:             envStr("APP_PORT", "4000"),
		Storage:          strings.ToLower(envStr("STORAGE", StorageMySQL)),
		DBUser:           os.Getenv("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           os.Getenv("DB_HOST"),
		DBPort:           os.Getenv("DB_PORT"),
		DBName:           os.Getenv("DB_NAME"),
		DBMigrate:        envBool("DB_MIGRATE", true),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		BcryptCost:       envInt("BCRYPT_COST", 12),
		CORSOrigin:       envStr("CORS_ORIGIN", "http://localhost:3000"),
		LegacyRoutes:     envBool("LEGACY_ROUTES", false),
		RabbitURL:        os.Getenv("RABBITMQ_URL"),
		TaskEventsQueue:  envStr("TASK_EVENTS_QUEUE", "tasks.events"),
		LogLevel:         envStr("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.AccessTTL, err = ParseTTL(envStr("JWT_ACCESS_EXPIRES_IN", "15m")); err != nil {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_EXPIRES_IN: %w", err))
	}
	if cfg.RefreshTTL, err = ParseTTL(envStr("JWT_REFRESH_EXPIRES_IN", "7d")); err != nil {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_EXPIRES_IN: %w", err))
	}

	switch cfg.Storage {
	case StorageMySQL:
		for _, kv := range [][2]string{
			{"DB_USER", cfg.DBUser}, {"DB_HOST", cfg.DBHost},
			{"DB_PORT", cfg.DBPort}, {"DB_NAME", cfg.DBName},
		} {
			if kv[1] == "" {
				errs = append(errs, fmt.Errorf("missing required env var: %s", kv[0]))
			}
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE: unknown backend %q", cfg.Storage))
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("missing required env var: JWT_SECRET"))
	}
	if cfg.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("missing required env var: JWT_REFRESH_SECRET"))
	}
	if cfg.JWTSecret != "" && cfg.JWTSecret == cfg.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST: %d out of range 4..31", cfg.BcryptCost))
	}

	return cfg, errors.Join(errs...)
}

// ParseTTL accepts a Go duration ("15m", "12h") or a whole number of days
// ("7d").  Zero and negative lifetimes are rejected.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		var err error
		if d, err = time.ParseDuration(s); err != nil {
			return 0, err
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("lifetime must be positive, got %q", s)
	}
	return d, nil
}
