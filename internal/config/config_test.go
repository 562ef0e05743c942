package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConfigDirEnv(t *testing.T) {
	t.Setenv("QMAP_CONFIG_HOME", "/tmp/qmap-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/qmap-config" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/qmap-config")
	}

	t.Setenv("QMAP_CONFIG_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/xdg/qmap" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/xdg/qmap")
	}
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	t.Setenv("QMAP_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	def := Default()
	if cfg != def {
		t.Fatalf("Load = %#v, want %#v", cfg, def)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QMAP_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "config.toml"), `
[editor]
game = "Quake2"
debug = true

[history]
max-entries = 25

[autosave]
idle-window = "5s"
max-backups = 3
database = "/tmp/qmap/backups.db"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Editor.Game != "Quake2" {
		t.Fatalf("Game = %q, want %q", cfg.Editor.Game, "Quake2")
	}
	if !cfg.Editor.Debug {
		t.Fatalf("Debug = false, want true")
	}
	if cfg.Editor.DefaultTexture != "__TB_empty" {
		t.Fatalf("DefaultTexture = %q, want default", cfg.Editor.DefaultTexture)
	}
	if cfg.History.MaxEntries != 25 {
		t.Fatalf("MaxEntries = %d, want 25", cfg.History.MaxEntries)
	}
	if cfg.Autosave.IdleWindow.Duration != 5*time.Second {
		t.Fatalf("IdleWindow = %v, want 5s", cfg.Autosave.IdleWindow)
	}
	if cfg.Autosave.CheckInterval.Duration != time.Second {
		t.Fatalf("CheckInterval = %v, want 1s", cfg.Autosave.CheckInterval)
	}
	if cfg.Autosave.MaxBackups != 3 {
		t.Fatalf("MaxBackups = %d, want 3", cfg.Autosave.MaxBackups)
	}
	path, err := cfg.BackupDatabasePath()
	if err != nil {
		t.Fatalf("BackupDatabasePath error: %v", err)
	}
	if path != "/tmp/qmap/backups.db" {
		t.Fatalf("BackupDatabasePath = %q, want %q", path, "/tmp/qmap/backups.db")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QMAP_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "config.toml"), `
[autosave]
idle-window = "soon"
`)

	if _, err := Load(); err == nil {
		t.Fatalf("Load error = nil, want error")
	}
}

func TestBackupDatabasePathDefault(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	path, err := Default().BackupDatabasePath()
	if err != nil {
		t.Fatalf("BackupDatabasePath error: %v", err)
	}
	if path != "/tmp/state/qmap/autosave.db" {
		t.Fatalf("BackupDatabasePath = %q, want %q", path, "/tmp/state/qmap/autosave.db")
	}
}
