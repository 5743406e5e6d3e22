package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/care-portal/internal/model"
)

const (
	defaultDemoEmail    = "mastermind@xerxez.com"
	defaultDemoPassword = "Tanzilla@tanzeem786"
	defaultSecret       = "change-me-in-production-0123456789"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Demo      DemoConfig      `mapstructure:"demo"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Logout    LogoutConfig    `mapstructure:"logout"`
	Poller    PollerConfig    `mapstructure:"poller"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Diagnosis DiagnosisConfig `mapstructure:"diagnosis"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type SessionConfig struct {
	Secret       string        `mapstructure:"secret"`
	CookieName   string        `mapstructure:"cookie_name"`
	MaxAge       int           `mapstructure:"max_age"`
	Secure       bool          `mapstructure:"secure"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	AreaIdleTime time.Duration `mapstructure:"area_idle_time"`
}

type UpstreamConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerInterval    time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
	Issuer      string `mapstructure:"issuer"`
}

type DemoConfig struct {
	Email      string `mapstructure:"email"`
	Password   string `mapstructure:"password"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

type GuardConfig struct {
	DevBypassPrefix string            `mapstructure:"dev_bypass_prefix"`
	Routes          []model.RouteRule `mapstructure:"routes"`
}

type LogoutConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

type PollerConfig struct {
	UsageRefresh time.Duration `mapstructure:"usage_refresh"`
	ActiveTime   time.Duration `mapstructure:"active_time"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DiagnosisConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

// secrets are read from PORTAL_* environment variables and win over the
// config file.
type secrets struct {
	Env           string `envconfig:"ENV"`
	JWTSecret     string `envconfig:"JWT_SECRET"`
	SessionSecret string `envconfig:"SESSION_SECRET"`
	DemoEmail     string `envconfig:"DEMO_EMAIL"`
	DemoPassword  string `envconfig:"DEMO_PASSWORD"`
	RedisURL      string `envconfig:"REDIS_URL"`
	UpstreamURL   string `envconfig:"UPSTREAM_URL"`
}

// LoadConfig reads .env, then config.yml from the given directories (or the
// default search path), then PORTAL_* overrides. A missing config file is
// not an error; built-in defaults apply.
func LoadConfig(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process("portal", &s); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	cfg.applySecrets(s)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets(s secrets) {
	override := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	override(&c.Env, s.Env)
	override(&c.JWT.Secret, s.JWTSecret)
	override(&c.Session.Secret, s.SessionSecret)
	override(&c.Demo.Email, s.DemoEmail)
	override(&c.Demo.Password, s.DemoPassword)
	override(&c.Redis.URL, s.RedisURL)
	override(&c.Upstream.BaseURL, s.UpstreamURL)
}

// Validate checks required settings. Production deployments must not run
// with the built-in secrets.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, errors.New("server.port must be positive"))
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("upstream.base_url is required"))
	}
	if c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required"))
	}
	if c.JWT.Secret == "" || c.Session.Secret == "" {
		errs = append(errs, errors.New("jwt.secret and session.secret are required"))
	}
	if c.IsProduction() && (c.JWT.Secret == defaultSecret || c.Session.Secret == defaultSecret) {
		errs = append(errs, errors.New("default secrets are not allowed in production"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "production", "prod":
		return true
	}
	return false
}

// AccessConfig builds the route access table.
func (c *Config) AccessConfig() *model.AccessConfig {
	return model.NewAccessConfig(c.Guard.Routes)
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpiryHours) * time.Hour
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.key_prefix", "portal:local")
	v.SetDefault("redis.ttl", 30*24*time.Hour)

	v.SetDefault("session.secret", defaultSecret)
	v.SetDefault("session.cookie_name", "portal_session")
	v.SetDefault("session.max_age", 30*24*60*60)
	v.SetDefault("session.idle_timeout", 30*time.Minute)
	v.SetDefault("session.area_idle_time", 8*time.Hour)

	v.SetDefault("upstream.base_url", "http://localhost:8000")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("upstream.breaker_max_failures", 5)
	v.SetDefault("upstream.breaker_interval", time.Minute)
	v.SetDefault("upstream.breaker_timeout", 30*time.Second)

	v.SetDefault("jwt.secret", defaultSecret)
	v.SetDefault("jwt.expiry_hours", 24)
	v.SetDefault("jwt.issuer", "care-portal")

	v.SetDefault("demo.email", defaultDemoEmail)
	v.SetDefault("demo.password", defaultDemoPassword)
	v.SetDefault("demo.bcrypt_cost", 10)

	v.SetDefault("guard.dev_bypass_prefix", "/dashboard-pages/")
	v.SetDefault("guard.routes", DefaultRoutes())

	v.SetDefault("logout.delay", 100*time.Millisecond)

	v.SetDefault("poller.usage_refresh", 30*time.Second)
	v.SetDefault("poller.active_time", time.Minute)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("diagnosis.delay", 1500*time.Millisecond)
}

// DefaultRoutes is the access table used when the config file has none.
func DefaultRoutes() []map[string]interface{} {
	return []map[string]interface{}{
		{"prefix": "/login", "public": true},
		{"prefix": "/register", "public": true},
		{"prefix": "/pricing", "public": true},
		{"prefix": "/dashboard"},
		{"prefix": "/dashboard-pages"},
		{"prefix": "/profile"},
		{"prefix": "/checkout", "on_not_found": "open"},
		{"prefix": "/admin", "admin_only": true},
		{"prefix": "/SecureNeat", "required_capabilities": []string{"secure_neat"}},
		{"prefix": "/radiology", "required_capabilities": []string{"radiology"}},
		{"prefix": "/pathology", "required_capabilities": []string{"pathology"}},
		{"prefix": "/ai-diagnosis", "required_capabilities": []string{"ai_diagnosis"}},
		{"prefix": "/usage", "required_capabilities": []string{"usage_analytics"}},
		{"prefix": "/lab-tests", "required_capabilities": []string{"lab_tests"}},
	}
}
