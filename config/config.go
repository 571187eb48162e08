// Package config loads the settings of a logos service.
//
// Settings come from, in increasing precedence: the defaults, a YAML
// file, the environment (PORT, LOGOS_ENV) and functional options.
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/IntellionInc/logos/communicator"
	"github.com/IntellionInc/logos/connection"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort            = 3000
	DefaultEnvironment     = "development"
	DefaultShutdownTimeout = 10 * time.Second

	// Production is the environment in which stack traces are hidden.
	Production = "production"
)

// Environment variables read by FromEnv.
const (
	EnvPort        = "PORT"
	EnvEnvironment = "LOGOS_ENV"
)

// Config is the whole service configuration.
type Config struct {
	Port            int                            `yaml:"port"`
	Environment     string                         `yaml:"environment"`
	ShutdownTimeout time.Duration                  `yaml:"shutdown_timeout"`
	Debug           bool                           `yaml:"debug"`
	Routes          string                         `yaml:"routes"`
	Databases       map[string]connection.Config   `yaml:"databases"`
	Outbound        map[string]communicator.Config `yaml:"outbound"`
}

// Default is the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:            DefaultPort,
		Environment:     DefaultEnvironment,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Option mutates a Config after it has been loaded.
type Option func(*Config)

// WithPort sets the listening port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithEnvironment sets the environment name.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithShutdownTimeout sets the graceful shutdown bound.  A
// non-positive value resets to the default.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d <= 0 {
			c.ShutdownTimeout = DefaultShutdownTimeout
			return
		}
		c.ShutdownTimeout = d
	}
}

// WithDatabase adds or replaces a named database.
func WithDatabase(name string, db connection.Config) Option {
	return func(c *Config) {
		if c.Databases == nil {
			c.Databases = make(map[string]connection.Config)
		}
		c.Databases[name] = db
	}
}

// WithOutbound adds or replaces a named outbound service.
func WithOutbound(name string, out communicator.Config) Option {
	return func(c *Config) {
		if c.Outbound == nil {
			c.Outbound = make(map[string]communicator.Config)
		}
		c.Outbound[name] = out
	}
}

// New is Default with options applied.
func New(opts ...Option) Config {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Load reads a YAML file.  An empty path skips the file.
func Load(path string, opts ...Option) (Config, error) {
	if path == "" {
		return Parse(nil, os.Getenv, opts...)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return Parse(data, os.Getenv, opts...)
}

// Parse decodes YAML over the defaults, then applies the environment
// read through getenv and then the options.  Unknown keys are errors.
func Parse(data []byte, getenv func(string) string, opts ...Option) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return Config{}, errors.Wrap(err, "parse config")
		}
	}
	if getenv != nil {
		if err := FromEnv(&cfg, getenv); err != nil {
			return Config{}, err
		}
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return cfg, cfg.Validate()
}

// FromEnv overrides cfg with PORT and LOGOS_ENV when they are set.
func FromEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s=%q", EnvPort, v)
		}
		cfg.Port = port
	}
	if v := strings.TrimSpace(getenv(EnvEnvironment)); v != "" {
		cfg.Environment = v
	}
	return nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if c.Environment == "" {
		return errors.New("environment must be set")
	}
	for name, db := range c.Databases {
		if db.DSN == "" {
			return errors.Errorf("database %s: no dsn", name)
		}
	}
	return nil
}

// Production reports whether stack traces must be hidden.
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, Production)
}
