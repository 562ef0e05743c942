package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration decodes TOML strings such as "2s" or "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type EditorOptions struct {
	Game           string `toml:"game"`
	DefaultTexture string `toml:"default-texture"`
	Debug          bool   `toml:"debug"`
}

type HistoryOptions struct {
	MaxEntries int `toml:"max-entries"`
}

type AutosaveOptions struct {
	Disabled      bool     `toml:"disabled"`
	CheckInterval Duration `toml:"check-interval"`
	IdleWindow    Duration `toml:"idle-window"`
	SaveInterval  Duration `toml:"save-interval"`
	MaxBackups    int      `toml:"max-backups"`
	Database      string   `toml:"database"`
}

type Config struct {
	Editor   EditorOptions   `toml:"editor"`
	History  HistoryOptions  `toml:"history"`
	Autosave AutosaveOptions `toml:"autosave"`
}

func Default() Config {
	return Config{
		Editor: EditorOptions{
			Game:           "Quake",
			DefaultTexture: "__TB_empty",
		},
		History: HistoryOptions{
			MaxEntries: 1000,
		},
		Autosave: AutosaveOptions{
			CheckInterval: Duration{time.Second},
			IdleWindow:    Duration{2 * time.Second},
			SaveInterval:  Duration{10 * time.Minute},
			MaxBackups:    50,
		},
	}
}

func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	if _, err := toml.Decode(string(data), &userCfg); err != nil {
		return cfg, err
	}

	if userCfg.Editor.Game != "" {
		cfg.Editor.Game = userCfg.Editor.Game
	}
	if userCfg.Editor.DefaultTexture != "" {
		cfg.Editor.DefaultTexture = userCfg.Editor.DefaultTexture
	}
	if userCfg.Editor.Debug {
		cfg.Editor.Debug = true
	}
	if userCfg.History.MaxEntries > 0 {
		cfg.History.MaxEntries = userCfg.History.MaxEntries
	}
	if userCfg.Autosave.Disabled {
		cfg.Autosave.Disabled = true
	}
	if userCfg.Autosave.CheckInterval.Duration > 0 {
		cfg.Autosave.CheckInterval = userCfg.Autosave.CheckInterval
	}
	if userCfg.Autosave.IdleWindow.Duration > 0 {
		cfg.Autosave.IdleWindow = userCfg.Autosave.IdleWindow
	}
	if userCfg.Autosave.SaveInterval.Duration > 0 {
		cfg.Autosave.SaveInterval = userCfg.Autosave.SaveInterval
	}
	if userCfg.Autosave.MaxBackups > 0 {
		cfg.Autosave.MaxBackups = userCfg.Autosave.MaxBackups
	}
	if userCfg.Autosave.Database != "" {
		cfg.Autosave.Database = userCfg.Autosave.Database
	}

	return cfg, nil
}

// BackupDatabasePath returns the configured backup database, defaulting to
// the XDG state directory.
func (c Config) BackupDatabasePath() (string, error) {
	if c.Autosave.Database != "" {
		return c.Autosave.Database, nil
	}
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "qmap", "autosave.db"), nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("QMAP_CONFIG_HOME"); v != "" {
		return filepath.Join(v), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qmap"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qmap"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
