// Package config loads odata-fetch configuration from flags, environment
// (ODATA_*) and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "ODATA"

	DefaultHost      = "oda.ft.dk"
	DefaultBasePath  = "/api"
	DefaultScheme    = "https"
	DefaultUserAgent = "odata-fetch/1.0"
	DefaultTimeout   = 30 * time.Second
	DefaultLogLevel  = "info"
)

// Config is the resolved CLI configuration.
type Config struct {
	Host      string        `mapstructure:"host"       validate:"required"`
	BasePath  string        `mapstructure:"base_path"`
	Scheme    string        `mapstructure:"scheme"     validate:"oneof=http https"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"    validate:"gt=0"`

	// Rate is requests per second; 0 disables limiting.
	Rate  float64 `mapstructure:"rate"  validate:"gte=0"`
	Burst int     `mapstructure:"burst" validate:"gte=0"`
	// RedisAddr switches to a limiter shared through Redis.
	RedisAddr string `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`

	ProxyURL string `mapstructure:"proxy_url" validate:"omitempty,url"`

	OAuthTokenURL     string   `mapstructure:"oauth_token_url"     validate:"omitempty,url"`
	OAuthClientID     string   `mapstructure:"oauth_client_id"     validate:"required_with=OAuthTokenURL"`
	OAuthClientSecret string   `mapstructure:"oauth_client_secret" validate:"required_with=OAuthTokenURL"`
	OAuthScopes       []string `mapstructure:"oauth_scopes"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogPretty bool   `mapstructure:"log_pretty"`
	LogFile   string `mapstructure:"log_file"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"host":                "host",
	"base-path":           "base_path",
	"scheme":              "scheme",
	"user-agent":          "user_agent",
	"timeout":             "timeout",
	"rate":                "rate",
	"burst":               "burst",
	"redis-addr":          "redis_addr",
	"proxy-url":           "proxy_url",
	"oauth-token-url":     "oauth_token_url",
	"oauth-client-id":     "oauth_client_id",
	"oauth-client-secret": "oauth_client_secret",
	"oauth-scopes":        "oauth_scopes",
	"log-level":           "log_level",
	"log-pretty":          "log_pretty",
	"log-file":            "log_file",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New returns a viper instance with defaults and ODATA_* environment lookup.
func New() *viper.Viper {
	v := viper.NewWithOptions(
		viper.KeyDelimiter("."),
		viper.EnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")),
	)

	v.SetEnvPrefix(DefaultEnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("host", DefaultHost)
	v.SetDefault("base_path", DefaultBasePath)
	v.SetDefault("scheme", DefaultScheme)
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("rate", 0)
	v.SetDefault("burst", 0)
	v.SetDefault("redis_addr", "")
	v.SetDefault("proxy_url", "")
	v.SetDefault("oauth_token_url", "")
	v.SetDefault("oauth_client_id", "")
	v.SetDefault("oauth_client_secret", "")
	v.SetDefault("oauth_scopes", []string{})
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_pretty", false)
	v.SetDefault("log_file", "")

	return v
}

// RegisterFlags defines the global flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Config file (yaml, toml or json)")
	fs.String("host", DefaultHost, "OData service host (authority only)")
	fs.String("base-path", DefaultBasePath, "Service base path")
	fs.String("scheme", DefaultScheme, "URL scheme (http or https)")
	fs.String("user-agent", DefaultUserAgent, "User-Agent header")
	fs.Duration("timeout", DefaultTimeout, "Per-request timeout")
	fs.Float64("rate", 0, "Requests per second (0 = unlimited)")
	fs.Int("burst", 0, "Rate limiter burst (default: rate rounded up)")
	fs.String("redis-addr", "", "Redis address for a rate limit shared between processes")
	fs.String("proxy-url", "", "HTTP(S) or SOCKS5 proxy URL")
	fs.String("oauth-token-url", "", "OAuth2 client credentials token URL")
	fs.String("oauth-client-id", "", "OAuth2 client ID")
	fs.String("oauth-client-secret", "", "OAuth2 client secret")
	fs.StringSlice("oauth-scopes", nil, "OAuth2 scopes")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("log-pretty", false, "Human-readable console logs")
	fs.String("log-file", "", "Write JSON logs to a rotated file")
}

// BindFlags binds the flags registered by RegisterFlags to v. Flags only
// override other sources when set explicitly.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		f := fs.Lookup(flag)
		if f == nil {
			return fmt.Errorf("flag %q not registered", flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", flag, err)
		}
	}
	if f := fs.Lookup("config"); f != nil {
		if err := v.BindPFlag("config", f); err != nil {
			return fmt.Errorf("bind flag %q: %w", "config", err)
		}
	}
	return nil
}

// Load reads the optional config file and returns the validated configuration.
// Precedence: flags, environment, config file, defaults.
func Load(v *viper.Viper) (*Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate configuration: %w", err)
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msg := fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// EffectiveBurst returns Burst, or Rate rounded up when Burst is unset.
func (c *Config) EffectiveBurst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	b := int(c.Rate)
	if float64(b) < c.Rate {
		b++
	}
	if b < 1 {
		b = 1
	}
	return b
}
