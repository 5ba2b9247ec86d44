package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newFlagSet(t *testing.T, args ...string) (*viper.Viper, *pflag.FlagSet) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	v := New()
	if err := BindFlags(v, fs); err != nil {
		t.Fatalf("BindFlags() error = %v", err)
	}
	return v, fs
}

func TestLoad_Defaults(t *testing.T) {
	v, _ := newFlagSet(t)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Host, DefaultHost)
	}
	if cfg.BasePath != DefaultBasePath {
		t.Errorf("BasePath = %q, want %q", cfg.BasePath, DefaultBasePath)
	}
	if cfg.Scheme != DefaultScheme {
		t.Errorf("Scheme = %q, want %q", cfg.Scheme, DefaultScheme)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.Rate != 0 {
		t.Errorf("Rate = %v, want 0", cfg.Rate)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("ODATA_HOST", "services.odata.org")
	t.Setenv("ODATA_BASE_PATH", "/V3/Northwind/Northwind.svc")
	t.Setenv("ODATA_TIMEOUT", "5s")
	t.Setenv("ODATA_RATE", "2.5")
	t.Setenv("ODATA_OAUTH_SCOPES", "read,write")

	v, _ := newFlagSet(t)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "services.odata.org" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.BasePath != "/V3/Northwind/Northwind.svc" {
		t.Errorf("BasePath = %q", cfg.BasePath)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.Rate != 2.5 {
		t.Errorf("Rate = %v, want 2.5", cfg.Rate)
	}
	if strings.Join(cfg.OAuthScopes, " ") != "read write" {
		t.Errorf("OAuthScopes = %v, want [read write]", cfg.OAuthScopes)
	}
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("ODATA_HOST", "from-env.example.com")

	v, _ := newFlagSet(t, "--host=from-flag.example.com", "--scheme=http", "--burst=4")
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "from-flag.example.com" {
		t.Errorf("Host = %q, want flag value", cfg.Host)
	}
	if cfg.Scheme != "http" {
		t.Errorf("Scheme = %q, want http", cfg.Scheme)
	}
	if cfg.Burst != 4 {
		t.Errorf("Burst = %d, want 4", cfg.Burst)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odata.yaml")
	content := "host: file.example.com\nbase_path: /odata\nrate: 3\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	v, _ := newFlagSet(t, "--config="+path, "--log-level=warn")
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "file.example.com" {
		t.Errorf("Host = %q, want file value", cfg.Host)
	}
	if cfg.BasePath != "/odata" {
		t.Errorf("BasePath = %q, want /odata", cfg.BasePath)
	}
	if cfg.Rate != 3 {
		t.Errorf("Rate = %v, want 3", cfg.Rate)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want flag to win over file", cfg.LogLevel)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	v, _ := newFlagSet(t, "--config="+filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(v); err == nil {
		t.Error("Load() error = nil, want missing file error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Host:     DefaultHost,
			Scheme:   "https",
			Timeout:  time.Second,
			LogLevel: "info",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing host", func(c *Config) { c.Host = "" }, "Host"},
		{"bad scheme", func(c *Config) { c.Scheme = "ftp" }, "Scheme"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "Timeout"},
		{"negative rate", func(c *Config) { c.Rate = -1 }, "Rate"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "LogLevel"},
		{"bad redis addr", func(c *Config) { c.RedisAddr = "no-port" }, "RedisAddr"},
		{"bad proxy", func(c *Config) { c.ProxyURL = "not a url" }, "ProxyURL"},
		{"oauth without client", func(c *Config) { c.OAuthTokenURL = "https://login.example.com/token" }, "OAuthClientID"},
		{"oauth complete", func(c *Config) {
			c.OAuthTokenURL = "https://login.example.com/token"
			c.OAuthClientID = "id"
			c.OAuthClientSecret = "secret"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveBurst(t *testing.T) {
	tests := []struct {
		rate  float64
		burst int
		want  int
	}{
		{0, 0, 1},
		{0.5, 0, 1},
		{2, 0, 2},
		{2.5, 0, 3},
		{10, 4, 4},
	}

	for _, tt := range tests {
		cfg := Config{Rate: tt.rate, Burst: tt.burst}
		if got := cfg.EffectiveBurst(); got != tt.want {
			t.Errorf("EffectiveBurst(rate=%v, burst=%d) = %d, want %d", tt.rate, tt.burst, got, tt.want)
		}
	}
}
