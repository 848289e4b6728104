// internal/util/util.go
// Package util loads the dev server configuration.
package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/erilali/devserver/internal/logger"
)

const (
	DefaultConfigFile = "livereload.json"
	ConfigFileEnv     = "LIVERELOAD_CONFIG"
	NatsURLEnv        = "LIVERELOAD_NATS_URL"

	WatchModePoll   = "poll"
	WatchModeNotify = "notify"
)

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds everything the dev server needs at start. Relative paths
// are resolved against Root by Resolve.
type Config struct {
	Host              string           `json:"host"`
	Port              int              `json:"port"`
	Root              string           `json:"root"`
	IndexFile         string           `json:"index_file"`
	WatchFiles        []string         `json:"watch_files"`
	WatchMode         string           `json:"watch_mode"` // poll or notify
	PollIntervalMs    int              `json:"poll_interval_ms"`
	ShutdownTimeoutMs int              `json:"shutdown_timeout_ms"`
	NatsURL           string           `json:"nats_url"` // empty disables the relay
	Logger            logger.LogConfig `json:"logger"`
}

// DefaultConfig returns the fixed constants the server runs with when no
// config file is present.
func DefaultConfig() Config {
	return Config{
		Host:              "127.0.0.1",
		Port:              5500,
		Root:              ".",
		IndexFile:         "index.html",
		WatchFiles:        []string{"index.html", "style.css", "style-start.css"},
		WatchMode:         WatchModePoll,
		PollIntervalMs:    500,
		ShutdownTimeoutMs: 5000,
		Logger:            logger.DefaultLogConfig(),
	}
}

// LoadConfig loads the configuration from a JSON file layered over the
// defaults. A missing file is not an error. LIVERELOAD_NATS_URL, when set,
// wins over the file.
func LoadConfig(filePath string) (Config, error) {
	config, err := loadFile(filePath)
	if v := os.Getenv(NatsURLEnv); v != "" {
		config.NatsURL = v
	}
	return config, err
}

func loadFile(filePath string) (Config, error) {
	config := DefaultConfig()
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}
	defer file.Close()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return DefaultConfig(), fmt.Errorf("decode %s: %w", filePath, err)
	}
	return config, nil
}

// ConfigPath returns the config file to load, honoring LIVERELOAD_CONFIG.
func ConfigPath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}
	return DefaultConfigFile
}

// Validate reports settings the server cannot run with.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.IndexFile == "" {
		return fmt.Errorf("%w: index_file is empty", ErrInvalidConfig)
	}
	if c.WatchMode != WatchModePoll && c.WatchMode != WatchModeNotify {
		return fmt.Errorf("%w: unknown watch_mode %q", ErrInvalidConfig, c.WatchMode)
	}
	if c.WatchMode == WatchModePoll && c.PollIntervalMs <= 0 {
		return fmt.Errorf("%w: poll_interval_ms must be positive", ErrInvalidConfig)
	}
	return nil
}

// Resolve makes Root absolute and resolves IndexFile and WatchFiles
// against it.
func (c Config) Resolve() (Config, error) {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return c, fmt.Errorf("resolve root %s: %w", c.Root, err)
	}
	c.Root = root
	c.IndexFile = c.resolve(c.IndexFile)
	files := make([]string, 0, len(c.WatchFiles))
	for _, f := range c.WatchFiles {
		files = append(files, c.resolve(f))
	}
	c.WatchFiles = files
	return c, nil
}

func (c Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}
