package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/statusd/internal/response"
)

// Config configures the listener, the loop and every connection.
type Config struct {
	Addr string `yaml:"addr"`

	// ReadBufferSize bounds a single read call.
	ReadBufferSize int `yaml:"read_buffer_size"`
	// MaxRequestLineBytes is how much may be buffered before a request
	// line must have yielded a path.
	MaxRequestLineBytes int `yaml:"max_request_line_bytes"`

	// IdleTimeout closes connections with no successful read or write
	// for this long. Zero disables it.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// PollTimeout is the longest single wait for readiness.
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	MaxConnections int           `yaml:"max_connections"`

	ServerName       string `yaml:"server_name"`
	RedirectLocation string `yaml:"redirect_location"`

	LogLevel string `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		Addr:                ":8088",
		ReadBufferSize:      8000,
		MaxRequestLineBytes: 16 << 10,
		IdleTimeout:         30 * time.Second,
		PollTimeout:         100 * time.Millisecond,
		MaxConnections:      1024,
		ServerName:          response.DefaultServerName,
		RedirectLocation:    response.DefaultRedirectLocation,
		LogLevel:            "info",
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys missing from
// the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	switch {
	case c.ReadBufferSize <= 0:
		return fmt.Errorf("%w: read_buffer_size must be positive, got %d", ErrInvalidConfig, c.ReadBufferSize)
	case c.MaxRequestLineBytes <= 0:
		return fmt.Errorf("%w: max_request_line_bytes must be positive, got %d", ErrInvalidConfig, c.MaxRequestLineBytes)
	case c.IdleTimeout < 0:
		return fmt.Errorf("%w: idle_timeout must not be negative, got %s", ErrInvalidConfig, c.IdleTimeout)
	case c.PollTimeout <= 0:
		return fmt.Errorf("%w: poll_timeout must be positive, got %s", ErrInvalidConfig, c.PollTimeout)
	case c.MaxConnections <= 0:
		return fmt.Errorf("%w: max_connections must be positive, got %d", ErrInvalidConfig, c.MaxConnections)
	}
	return nil
}

func (c Config) framing() response.Framing {
	return response.Framing{
		ServerName:       c.ServerName,
		RedirectLocation: c.RedirectLocation,
	}
}
