package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Verifier modes accepted by AUTH_VERIFIER_MODE.
const (
	VerifierRemote        = "remote"
	VerifierSecret        = "secret"
	VerifierOIDC          = "oidc"
	VerifierTrustedDecode = "trusted_decode"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"question-bank"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`
	DownstreamTimeout       time.Duration `env:"DOWNSTREAM_TIMEOUT" envDefault:"5s"`

	Store     Store
	Postgres  Postgres
	Identity  Identity
	Auth      Auth
	Access    Access
	Questions Questions
	Redis     Redis
	Admin     Admin
	CORS      CORS
}

// Store selects how the data store is reached.
type Store struct {
	Backend     string `env:"STORE_BACKEND" envDefault:"postgres"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the libpq keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// LoadPostgres parses only the PG_* variables, for tools that need the
// database without the rest of the service configuration.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.Parse(&pg); err != nil {
		return Postgres{}, fmt.Errorf("parse postgres config: %w", err)
	}
	if pg.User == "" || pg.Database == "" {
		return Postgres{}, errors.New("PG_USER and PG_DATABASE are required")
	}
	return pg, nil
}

// Identity describes the hosted auth + REST facade.
type Identity struct {
	URL        string `env:"IDENTITY_URL" envDefault:""`
	AnonKey    string `env:"IDENTITY_ANON_KEY" envDefault:""`
	ServiceKey string `env:"IDENTITY_SERVICE_KEY" envDefault:""`
	JWTSecret  string `env:"IDENTITY_JWT_SECRET" envDefault:""`
}

// Auth selects the token verification strategy.
type Auth struct {
	VerifierMode        string `env:"AUTH_VERIFIER_MODE" envDefault:"remote"`
	AllowInsecureDecode bool   `env:"AUTH_ALLOW_INSECURE_DECODE" envDefault:"false"`
	OIDCIssuerURL       string `env:"OIDC_ISSUER_URL" envDefault:""`
	OIDCAudience        string `env:"OIDC_AUDIENCE" envDefault:""`
}

// Access governs entitlement evaluation.
type Access struct {
	EnforceExpiry bool `env:"ACCESS_ENFORCE_EXPIRY" envDefault:"true"`
}

// Questions configures the published listing.
type Questions struct {
	PageSize int           `env:"QUESTIONS_PAGE_SIZE" envDefault:"20"`
	CacheTTL time.Duration `env:"QUESTIONS_CACHE_TTL" envDefault:"30s"`
}

// Redis holds cache + feed configuration. Empty Addr disables both.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Admin guards the write endpoints.
type Admin struct {
	TokenHash string `env:"ADMIN_TOKEN_HASH" envDefault:""`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config and validates it.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *App) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate enforces cross-field rules that struct tags cannot express.
func (c *App) Validate() error {
	var errs []error

	if c.DownstreamTimeout <= 0 {
		errs = append(errs, errors.New("DOWNSTREAM_TIMEOUT must be positive"))
	}
	if c.Questions.PageSize <= 0 {
		errs = append(errs, errors.New("QUESTIONS_PAGE_SIZE must be positive"))
	}

	switch c.Store.Backend {
	case BackendPostgres:
		if c.Postgres.User == "" || c.Postgres.Database == "" {
			errs = append(errs, errors.New("PG_USER and PG_DATABASE are required for the postgres backend"))
		}
	case BackendREST:
		if c.Identity.URL == "" || c.Identity.ServiceKey == "" {
			errs = append(errs, errors.New("IDENTITY_URL and IDENTITY_SERVICE_KEY are required for the rest backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	switch c.Auth.VerifierMode {
	case VerifierRemote:
		if c.Identity.URL == "" || c.Identity.AnonKey == "" {
			errs = append(errs, errors.New("IDENTITY_URL and IDENTITY_ANON_KEY are required for remote verification"))
		}
	case VerifierSecret:
		if c.Identity.JWTSecret == "" {
			errs = append(errs, errors.New("IDENTITY_JWT_SECRET is required for secret verification"))
		}
	case VerifierOIDC:
		if c.Auth.OIDCIssuerURL == "" {
			errs = append(errs, errors.New("OIDC_ISSUER_URL is required for oidc verification"))
		}
	case VerifierTrustedDecode:
		if c.IsProduction() && !c.Auth.AllowInsecureDecode {
			errs = append(errs, errors.New("trusted_decode verification is refused in production unless AUTH_ALLOW_INSECURE_DECODE=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_VERIFIER_MODE %q", c.Auth.VerifierMode))
	}

	if c.IsProduction() && c.Admin.TokenHash == "" {
		errs = append(errs, errors.New("ADMIN_TOKEN_HASH is required in production"))
	}

	return errors.Join(errs...)
}
