// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package config loads StaffDesk settings from defaults, an optional YAML
// file, the environment and command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/staffdesk/staffdesk/internal/logging"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// EnvPrefix prefixes every StaffDesk environment variable. Nested keys are
// separated by a double underscore: STAFFDESK_AUTH__TOKEN_TTL sets auth.token_ttl.
const EnvPrefix = "STAFFDESK_"

// MinSecretLength is the shortest JWT secret that does not produce a warning.
const MinSecretLength = 32

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Revocation backends.
const (
	RevocationNone   = "none"
	RevocationMemory = "memory"
	RevocationRedis  = "redis"
)

// conventionalEnv maps unprefixed variables used by common deployment
// tooling to their config keys.
var conventionalEnv = map[string]string{
	"JWT_SECRET":   "auth.jwt_secret",
	"DATABASE_URL": "database.url",
	"REDIS_URL":    "redis.url",
}

// listKeys are split on commas when they come from the environment.
var listKeys = []string{"server.allowed_origins", "server.trusted_proxies", "auth.public_paths"}

// Config is the full StaffDesk configuration.
type Config struct {
	Env       string          `koanf:"env"`
	Server    ServerConfig    `koanf:"server"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	WebDir            string        `koanf:"web_dir"`
	AllowedOrigins    []string      `koanf:"allowed_origins"`
	// TrustedProxies are the reverse proxies whose forwarding headers
	// carry the client IP. Empty means the socket peer is the client.
	TrustedProxies    []string      `koanf:"trusted_proxies"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	MaxConns       int32         `koanf:"max_conns"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	// AutoMigrate applies pending migrations before serving.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// RedisConfig configures Redis, used only by the redis revocation backend.
type RedisConfig struct {
	URL string `koanf:"url"`
	// KeyPrefix namespaces denylist keys so instances can share a database.
	KeyPrefix string `koanf:"key_prefix"`
}

// AuthConfig configures sessions.
type AuthConfig struct {
	JWTSecret   string        `koanf:"jwt_secret"`
	TokenTTL    time.Duration `koanf:"token_ttl"`
	CookieName  string        `koanf:"cookie_name"`
	SameSite    string        `koanf:"same_site"`
	TokenInBody bool          `koanf:"token_in_body"`
	Revocation  string        `koanf:"revocation"`
	PublicPaths []string      `koanf:"public_paths"`
	LandingPath string        `koanf:"landing_path"`
	LoginPath   string        `koanf:"login_path"`
}

// RateLimitConfig configures per-IP limits on the credential endpoints.
type RateLimitConfig struct {
	AuthPerMinute int `koanf:"auth_per_minute"`
}

// Default returns the built-in configuration. It has no JWT secret and no
// database URL; both must be supplied.
func Default() Config {
	return Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Database: DatabaseConfig{
			ConnectTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:    7 * 24 * time.Hour,
			CookieName:  "auth-token",
			SameSite:    "strict",
			Revocation:  RevocationNone,
			LandingPath: "/dashboard",
			LoginPath:   "/login",
		},
		Redis:     RedisConfig{KeyPrefix: "staffdesk:revoked:"},
		RateLimit: RateLimitConfig{AuthPerMinute: 20},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), the environment and the changed flags in flags (may be nil).
// Flags are matched to keys by flagKeys; unknown flags are ignored.
func Load(path string, flags *pflag.FlagSet, flagKeys map[string]string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", path).
				Wrapf(errutil.ErrConfiguration, "read config file: %v", err)
		}
	}

	conventional := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		return conventionalEnv[key], value
	})
	if err := k.Load(conventional, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	prefixed := env.ProviderWithValue(EnvPrefix, ".", envKey)
	if err := k.Load(prefixed, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("source", "unmarshal").
			Wrapf(errutil.ErrConfiguration, "decode config: %v", err)
	}
	return &cfg, nil
}

// envKey turns STAFFDESK_AUTH__TOKEN_TTL into auth.token_ttl.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if slices.Contains(listKeys, key) {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction reports whether the config runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate reports every invalid setting at once. A missing JWT secret is
// reported on its own with code CONFIG_MISSING_SECRET.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return oops.Code("CONFIG_MISSING_SECRET").
			Public("Server misconfigured").
			Wrapf(errutil.ErrConfiguration, "auth.jwt_secret (JWT_SECRET) is required")
	}

	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		addf("env must be development, production or test, got %q", c.Env)
	}
	if c.Server.Addr == "" {
		addf("server.addr is required")
	}
	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			addf("server.trusted_proxies: %q is not an address or CIDR range", p)
		}
	}
	if c.Database.URL == "" {
		addf("database.url (DATABASE_URL) is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		addf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		addf("log.level: unknown level %q", c.Log.Level)
	}
	if c.Auth.TokenTTL <= 0 {
		addf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.CookieName == "" {
		addf("auth.cookie_name is required")
	}
	switch strings.ToLower(c.Auth.SameSite) {
	case "strict", "lax":
	case "none":
		if !c.IsProduction() {
			addf("auth.same_site none requires a secure cookie (env production)")
		}
	default:
		addf("auth.same_site must be strict, lax or none, got %q", c.Auth.SameSite)
	}
	switch c.Auth.Revocation {
	case RevocationNone, RevocationMemory:
	case RevocationRedis:
		if c.Redis.URL == "" {
			addf("redis.url (REDIS_URL) is required when auth.revocation is redis")
		}
		if c.Redis.KeyPrefix == "" {
			addf("redis.key_prefix is required when auth.revocation is redis")
		}
	default:
		addf("auth.revocation must be none, memory or redis, got %q", c.Auth.Revocation)
	}
	for _, p := range []string{c.Auth.LandingPath, c.Auth.LoginPath} {
		if !strings.HasPrefix(p, "/") {
			addf("auth landing and login paths must start with '/', got %q", p)
		}
	}
	if c.RateLimit.AuthPerMinute < 0 {
		addf("ratelimit.auth_per_minute cannot be negative")
	}

	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", problems).
			Wrapf(errutil.ErrConfiguration, "invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validProxy(s string) bool {
	if _, err := netip.ParsePrefix(s); err == nil {
		return true
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// Warnings lists settings that are valid but unsafe.
func (c *Config) Warnings() []string {
	var out []string
	if len(c.Auth.JWTSecret) < MinSecretLength {
		out = append(out, fmt.Sprintf("auth.jwt_secret is shorter than %d bytes", MinSecretLength))
	}
	if c.IsProduction() && c.Auth.TokenInBody {
		out = append(out, "auth.token_in_body exposes session tokens to scripts")
	}
	if c.Auth.Revocation == RevocationMemory {
		out = append(out, "auth.revocation memory is not shared between instances")
	}
	return out
}
