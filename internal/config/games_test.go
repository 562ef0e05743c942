package config

import (
	"path/filepath"
	"testing"
)

func TestGamesMatch(t *testing.T) {
	cfg := Games{
		Games: []Game{
			{Name: "quake", FileTypes: []string{"map", ".qmap"}},
			{Name: "hexen2", FileTypes: []string{"h2map", "START.MAP"}},
		},
	}

	if got := cfg.Match("e1m1.map"); got == nil || got.Name != "quake" {
		t.Fatalf("Match e1m1.map = %#v, want quake", got)
	}
	if got := cfg.Match("dm3.QMAP"); got == nil || got.Name != "quake" {
		t.Fatalf("Match dm3.QMAP = %#v, want quake", got)
	}
	if got := cfg.Match("demo.h2map"); got == nil || got.Name != "hexen2" {
		t.Fatalf("Match demo.h2map = %#v, want hexen2", got)
	}
	if got := cfg.Match("unknown.txt"); got != nil {
		t.Fatalf("Match unknown.txt = %#v, want nil", got)
	}
}

func TestLoadGamesOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QMAP_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "games.toml"), `
[[game]]
name = "Quake"
file-types = ["map"]
world-size = 4096

[[game]]
name = "Daikatana"
file-types = ["dkmap"]
`)

	games, err := LoadGames()
	if err != nil {
		t.Fatalf("LoadGames error: %v", err)
	}
	q := games.Find("quake")
	if q == nil {
		t.Fatalf("Find quake = nil")
	}
	if q.HalfSize() != 2048 {
		t.Fatalf("quake HalfSize = %v, want 2048", q.HalfSize())
	}
	dk := games.Find("Daikatana")
	if dk == nil {
		t.Fatalf("Find Daikatana = nil")
	}
	if dk.HalfSize() != defaultWorldSize/2 {
		t.Fatalf("Daikatana HalfSize = %v, want %v", dk.HalfSize(), defaultWorldSize/2)
	}
	if games.Find("Quake2") == nil {
		t.Fatalf("builtin Quake2 missing")
	}
}

func TestLoadGamesMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QMAP_CONFIG_HOME", dir)

	games, err := LoadGames()
	if err != nil {
		t.Fatalf("LoadGames error: %v", err)
	}
	if len(games.Games) != len(DefaultGames().Games) {
		t.Fatalf("Games len = %d, want %d", len(games.Games), len(DefaultGames().Games))
	}
}
