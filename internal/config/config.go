// Package config loads the server configuration from command-line flags,
// CHANGELOGD_* environment variables and an optional config file, in that
// order of precedence. The result is an immutable value injected into the
// components that need it.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CHANGELOGD_SECRET.
const EnvPrefix = "CHANGELOGD"

// Keys, which double as flag names.
const (
	KeyAddress           = "address"
	KeyPort              = "port"
	KeySecret            = "secret"
	KeyDirectory         = "directory"
	KeyQuiet             = "quiet"
	KeyLogLevel          = "log-level"
	KeyLogFormat         = "log-format"
	KeyWorkers           = "workers"
	KeyMaxBodyBytes      = "max-body-bytes"
	KeyShutdownTimeout   = "shutdown-timeout"
	KeyReadHeaderTimeout = "read-header-timeout"
	KeyOTelEndpoint      = "otel-endpoint"
)

// Config holds the server configuration.
type Config struct {
	Address           string        `mapstructure:"address"`
	Port              int           `mapstructure:"port"`
	Secret            string        `mapstructure:"secret"`
	Directory         string        `mapstructure:"directory"`
	Quiet             bool          `mapstructure:"quiet"`
	LogLevel          string        `mapstructure:"log-level"`
	LogFormat         string        `mapstructure:"log-format"`
	Workers           int           `mapstructure:"workers"`
	MaxBodyBytes      int64         `mapstructure:"max-body-bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown-timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read-header-timeout"`
	OTelEndpoint      string        `mapstructure:"otel-endpoint"`
}

// DefaultConfig returns the defaults. Secret and Directory have none and
// must be supplied.
func DefaultConfig() Config {
	return Config{
		Address:           "0.0.0.0",
		Port:              8080,
		LogLevel:          "info",
		LogFormat:         "text",
		Workers:           128,
		MaxBodyBytes:      10 << 20,
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// BindFlags registers the server flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.StringP(KeyAddress, "a", d.Address, "the address to bind to")
	fs.IntP(KeyPort, "p", d.Port, "the port to bind to")
	fs.StringP(KeySecret, "s", "", "the secret key required to publish versions")
	fs.StringP(KeyDirectory, "d", "", "the folder to store data in")
	fs.BoolP(KeyQuiet, "q", d.Quiet, "disable access logging")
	fs.String(KeyLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
	fs.String(KeyLogFormat, d.LogFormat, "log format (text, json, logfmt)")
	fs.Int(KeyWorkers, d.Workers, "maximum number of requests handled concurrently")
	fs.Int64(KeyMaxBodyBytes, d.MaxBodyBytes, "maximum accepted request body size in bytes")
	fs.Duration(KeyShutdownTimeout, d.ShutdownTimeout, "time allowed for in-flight requests on shutdown")
	fs.Duration(KeyReadHeaderTimeout, d.ReadHeaderTimeout, "time allowed to read request headers")
	fs.String(KeyOTelEndpoint, d.OTelEndpoint, "OTLP/HTTP trace endpoint URL (tracing is off when empty)")
}

// Load resolves the configuration. fs may be nil; configFile may be empty.
func Load(fs *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault(KeyAddress, d.Address)
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeySecret, d.Secret)
	v.SetDefault(KeyDirectory, d.Directory)
	v.SetDefault(KeyQuiet, d.Quiet)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyWorkers, d.Workers)
	v.SetDefault(KeyMaxBodyBytes, d.MaxBodyBytes)
	v.SetDefault(KeyShutdownTimeout, d.ShutdownTimeout)
	v.SetDefault(KeyReadHeaderTimeout, d.ReadHeaderTimeout)
	v.SetDefault(KeyOTelEndpoint, d.OTelEndpoint)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if c.Secret == "" {
		errs = append(errs, errors.New("secret is required"))
	}
	if c.Directory == "" {
		errs = append(errs, errors.New("directory is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.MaxBodyBytes < 1 {
		errs = append(errs, fmt.Errorf("max-body-bytes must be positive, got %d", c.MaxBodyBytes))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown-timeout must not be negative, got %s", c.ShutdownTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ListenAddr returns the host:port the server binds to.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// EnsureDirectory creates path if it doesn't exist and checks it is a
// directory.
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("expected %s to be a directory", path)
	}
	return nil
}
