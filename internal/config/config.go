package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App       AppConfig       `toml:"app"`
	Objects   ObjectsConfig   `toml:"objects"`
	Classes   ClassesConfig   `toml:"classes"`
	Prefs     PrefsConfig     `toml:"prefs"`
	Scripting ScriptingConfig `toml:"scripting"`
	Shutdown  ShutdownConfig  `toml:"shutdown"`
	Logging   LoggingConfig   `toml:"logging"`
}

type AppConfig struct {
	Title string `toml:"title"`
	Batch bool   `toml:"batch"` // no object window: buttons file is not written
}

type ObjectsConfig struct {
	MaxObjects int `toml:"max_objects"` // hard bound of the object table
	MaxEditors int `toml:"max_editors"` // editor slots per object
}

type ClassesConfig struct {
	Path string `toml:"path"` // optional YAML class table; empty = built-in
}

type PrefsConfig struct {
	Dir         string `toml:"dir"`
	IgnoreFiles bool   `toml:"ignore_files"` // neither read nor write pid, preferences, buttons
	Backend     string `toml:"backend"`      // "file" or "postgres"
	DSN         string `toml:"dsn"`
}

// PrefsFile is the preferences file inside Dir.
func (c PrefsConfig) PrefsFile() string { return filepath.Join(c.Dir, "prefs5") }

// ButtonsFile is the editable-menu customizations file inside Dir.
func (c PrefsConfig) ButtonsFile() string { return filepath.Join(c.Dir, "buttons5") }

// PidFile is the process id file inside Dir.
func (c PrefsConfig) PidFile() string { return filepath.Join(c.Dir, "pid") }

type ScriptingConfig struct {
	Dir string `toml:"dir"` // startup scripts, run in name order
}

type ShutdownConfig struct {
	Fast bool `toml:"fast"` // terminate without exit-time destructors after the orderly steps
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

func (c *Config) validate() error {
	if c.Objects.MaxObjects < 1 {
		return fmt.Errorf("objects.max_objects must be positive, got %d", c.Objects.MaxObjects)
	}
	if c.Objects.MaxEditors < 1 {
		return fmt.Errorf("objects.max_editors must be positive, got %d", c.Objects.MaxEditors)
	}
	switch c.Prefs.Backend {
	case "file":
	case "postgres":
		if c.Prefs.DSN == "" {
			return errors.New("prefs.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown prefs.backend %q", c.Prefs.Backend)
	}
	return nil
}

func defaults() *Config {
	prefsDir := ".praat-dir"
	if home, err := os.UserHomeDir(); err == nil {
		prefsDir = filepath.Join(home, ".praat-dir")
	}
	return &Config{
		App: AppConfig{
			Title: "Praat",
		},
		Objects: ObjectsConfig{
			MaxObjects: 10000,
			MaxEditors: 5,
		},
		Prefs: PrefsConfig{
			Dir:     prefsDir,
			Backend: "file",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Shutdown: ShutdownConfig{
			Fast: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
