package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	CORS       CORSConfig       `yaml:"cors"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Cache      CacheConfig      `yaml:"cache"`
	Capture    CaptureConfig    `yaml:"capture"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type,X-Timezone"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// DefaultTimezone is used when a request carries no X-Timezone header.
	DefaultTimezone string `yaml:"default_timezone" env:"SERVER_DEFAULT_TIMEZONE" env-default:"UTC"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Driver selects the day store: "postgres" or "memory".
	Driver          string        `yaml:"driver"             env:"DATABASE_DRIVER"             env-default:"postgres"`
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds access token settings.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"       env-required:"true"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"macrolog"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"720h"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// ExtractionConfig holds settings of the structured-extraction client.
type ExtractionConfig struct {
	APIKey            string        `yaml:"api_key"            env:"ANTHROPIC_API_KEY"`
	BaseURL           string        `yaml:"base_url"           env:"EXTRACTION_BASE_URL"`
	Model             string        `yaml:"model"              env:"EXTRACTION_MODEL"              env-default:"claude-sonnet-4-5"`
	MaxTokens         int64         `yaml:"max_tokens"         env:"EXTRACTION_MAX_TOKENS"         env-default:"4096"`
	MaxAttempts       int           `yaml:"max_attempts"       env:"EXTRACTION_MAX_ATTEMPTS"       env-default:"3"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"    env:"EXTRACTION_INITIAL_BACKOFF"    env-default:"2s"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" env:"EXTRACTION_BACKOFF_MULTIPLIER" env-default:"2"`
	AttemptTimeout    time.Duration `yaml:"attempt_timeout"    env:"EXTRACTION_ATTEMPT_TIMEOUT"    env-default:"3m"`
	PriorDays         int           `yaml:"prior_days"         env:"EXTRACTION_PRIOR_DAYS"         env-default:"3"`
}

// CacheConfig holds Day Cache settings.
type CacheConfig struct {
	PrefetchWindow int `yaml:"prefetch_window" env:"CACHE_PREFETCH_WINDOW" env-default:"7"`
}

// CaptureConfig holds input-capture settings.
type CaptureConfig struct {
	FinalTranscriptTimeout time.Duration `yaml:"final_transcript_timeout" env:"CAPTURE_FINAL_TRANSCRIPT_TIMEOUT" env-default:"500ms"`
}

// ReconcileConfig holds orchestrator settings.
type ReconcileConfig struct {
	SaveWatchdog time.Duration `yaml:"save_watchdog" env:"RECONCILE_SAVE_WATCHDOG" env-default:"10s"`
}

// RateLimitConfig holds per-user request limits.
type RateLimitConfig struct {
	LogPerMinute    int           `yaml:"log_per_minute"   env:"RATELIMIT_LOG_PER_MINUTE"   env-default:"20"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"RATELIMIT_CLEANUP_INTERVAL" env-default:"5m"`
}
