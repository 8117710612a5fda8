package tinydav

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings of a client loaded by LoadConfig.
type Config struct {
	Scheme   string            `mapstructure:"scheme"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Headers  map[string]string `mapstructure:"headers"`
	// Timeout bounds a whole round trip. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// Cookies enables a cookie jar.
	Cookies bool        `mapstructure:"cookies"`
	Retry   RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	// Attempts is the number of tries of a request. Values below 2 disable
	// retries.
	Attempts uint          `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

// LoadConfig reads the "tinydav" configuration file (YAML, TOML or JSON) in
// dir, then TINYDAV_* environment variables, e.g. TINYDAV_HOST or
// TINYDAV_RETRY_ATTEMPTS. A .env file in dir is loaded into the environment
// first. An empty dir is the working directory. The file is optional. A nil
// logger means slog.Default().
func LoadConfig(dir string, logger *slog.Logger) (*Config, error) {
	var err error

	if logger == nil {
		logger = slog.Default()
	}

	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}

	envFile := filepath.Join(dir, ".env")
	if _, err = os.Stat(envFile); err == nil {
		if err = godotenv.Load(envFile); err != nil {
			return nil, err
		}
		logger.Debug(".env loaded", "path", envFile)
	}

	v := viper.New()

	v.AddConfigPath(dir)
	v.SetConfigName("tinydav")

	v.SetDefault("scheme", "http")
	v.SetDefault("host", "")
	v.SetDefault("port", 0)
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("timeout", 0)
	v.SetDefault("cookies", false)
	v.SetDefault("retry.attempts", 1)
	v.SetDefault("retry.delay", time.Second)

	v.SetEnvPrefix("tinydav")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.Scheme = strings.ToLower(cfg.Scheme)
	if cfg.Port == 0 {
		cfg.Port = defaultPort(cfg.Scheme)
	}

	return cfg, nil
}

// Validate returns every problem of the configuration at once. The returned
// *ConfigError wraps a *multierror.Error listing them.
func (cfg *Config) Validate() error {
	var merr *multierror.Error

	switch cfg.Scheme {
	case "", "http", "https":
	default:
		merr = multierror.Append(merr, fmt.Errorf("unsupported scheme %q", cfg.Scheme))
	}
	if cfg.Host == "" {
		merr = multierror.Append(merr, fmt.Errorf("missing host"))
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		merr = multierror.Append(merr, fmt.Errorf("invalid port %v", cfg.Port))
	}
	if cfg.Password != "" && cfg.Username == "" {
		merr = multierror.Append(merr, fmt.Errorf("password given without username"))
	}
	if cfg.Timeout < 0 {
		merr = multierror.Append(merr, fmt.Errorf("negative timeout %v", cfg.Timeout))
	}
	if cfg.Retry.Delay < 0 {
		merr = multierror.Append(merr, fmt.Errorf("negative retry delay %v", cfg.Retry.Delay))
	}

	if err := merr.ErrorOrNil(); err != nil {
		return &ConfigError{Op: "config", Msg: err.Error(), Err: merr}
	}
	return nil
}

// NewClientFromConfig validates cfg and creates a client. Additional options
// are applied after the ones derived from cfg.
func NewClientFromConfig(cfg *Config, logger *slog.Logger, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.Cookies {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}

	var transport HTTPClient = hc
	if cfg.Retry.Attempts > 1 {
		transport = NewRetryHTTPClient(hc, cfg.Retry.Attempts, cfg.Retry.Delay, logger)
	}

	base := []ClientOption{WithHTTPClient(transport), WithLogger(logger)}
	if cfg.Username != "" {
		base = append(base, WithBasicAuth(cfg.Username, cfg.Password))
	}
	for k, v := range cfg.Headers {
		base = append(base, WithHeader(k, v))
	}

	return NewClient(cfg.Scheme, cfg.Host, cfg.Port, append(base, opts...)...)
}
