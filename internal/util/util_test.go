package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(NatsURLEnv, "")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
	assert.Equal(t, "127.0.0.1:5500", config.Addr())
	assert.Equal(t, 500*time.Millisecond, config.PollInterval())
	assert.Equal(t, []string{"index.html", "style.css", "style-start.css"}, config.WatchFiles)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	t.Setenv(NatsURLEnv, "")
	path := filepath.Join(t.TempDir(), "livereload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": 8081,
		"watch_files": ["index.html", "app.js"],
		"watch_mode": "notify",
		"logger": {"level": "debug"}
	}`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", config.Host)
	assert.Equal(t, 8081, config.Port)
	assert.Equal(t, []string{"index.html", "app.js"}, config.WatchFiles)
	assert.Equal(t, WatchModeNotify, config.WatchMode)
	assert.Equal(t, "debug", config.Logger.Level)
	assert.Equal(t, 10, config.Logger.MaxSize, "unset logger fields keep their defaults")
}

func TestLoadConfigMalformedFile(t *testing.T) {
	t.Setenv(NatsURLEnv, "")
	path := filepath.Join(t.TempDir(), "livereload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": `), 0o644))

	config, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadConfigNatsEnvWins(t *testing.T) {
	t.Setenv(NatsURLEnv, "nats://example:4222")
	path := filepath.Join(t.TempDir(), "livereload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nats_url": "nats://file:4222"}`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://example:4222", config.NatsURL)
}

func TestConfigPath(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	assert.Equal(t, DefaultConfigFile, ConfigPath())

	t.Setenv(ConfigFileEnv, "/etc/dev.json")
	assert.Equal(t, "/etc/dev.json", ConfigPath())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		change func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 70000 }},
		{"index", func(c *Config) { c.IndexFile = "" }},
		{"mode", func(c *Config) { c.WatchMode = "inotify" }},
		{"interval", func(c *Config) { c.PollIntervalMs = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.change(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	c := DefaultConfig()
	c.Root = root
	c.WatchFiles = []string{"index.html", "css/style.css", "/abs/file.css"}

	resolved, err := c.Resolve()
	require.NoError(t, err)
	assert.Equal(t, root, resolved.Root)
	assert.Equal(t, filepath.Join(root, "index.html"), resolved.IndexFile)
	assert.Equal(t, []string{
		filepath.Join(root, "index.html"),
		filepath.Join(root, "css", "style.css"),
		"/abs/file.css",
	}, resolved.WatchFiles)
	assert.Equal(t, []string{"index.html", "css/style.css", "/abs/file.css"}, c.WatchFiles, "Resolve must not touch the receiver")
}
