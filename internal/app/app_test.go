package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("QMAP_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("QMAP_LOG_FILE", filepath.Join(dir, "qmap.log"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	return dir
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := New(args)
	a.out = &out
	err := a.Run()
	return out.String(), err
}

const editScript = `
name: room
steps:
  - op: create-brush
    as: floor
    min: [0, 0, 0]
    max: [256, 256, 16]
  - op: begin
    name: Raise
  - op: translate
    delta: [0, 0, 32]
  - op: commit
  - op: expect
    expect: {undo-name: Undo Raise, modified: true}
`

func TestRunScriptAndFinalBackup(t *testing.T) {
	dir := setupEnv(t)
	scriptPath := filepath.Join(dir, "room.yaml")
	writeFile(t, scriptPath, editScript)
	mapPath := filepath.Join(dir, "room.map")

	out, err := run(t, "--map", mapPath, scriptPath)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.Contains(out, "room: Undo Raise, Redo, modified=true") {
		t.Fatalf("output = %q", out)
	}

	// teardown wrote a backup of the unsaved document
	out, err = run(t, "--map", mapPath, "--backups")
	if err != nil {
		t.Fatalf("Run --backups error: %v", err)
	}
	if !strings.Contains(out, "modification") {
		t.Fatalf("backups output = %q, want one backup", out)
	}

	restoreScript := filepath.Join(dir, "check.yaml")
	writeFile(t, restoreScript, `
steps:
  - op: expect
    expect: {brushes: 1, can-undo: false, modified: true}
  - op: save
`)
	out, err = run(t, "--map", mapPath, "--recover", restoreScript)
	if err != nil {
		t.Fatalf("Run --recover error: %v", err)
	}
	if !strings.Contains(out, "restored backup") {
		t.Fatalf("recover output = %q", out)
	}
	if _, err := os.Stat(mapPath); err != nil {
		t.Fatalf("map not saved: %v", err)
	}
}

func TestRunNoAutosave(t *testing.T) {
	dir := setupEnv(t)
	scriptPath := filepath.Join(dir, "room.yaml")
	writeFile(t, scriptPath, editScript)

	if _, err := run(t, "--no-autosave", scriptPath); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state", "qmap", "autosave.db")); !os.IsNotExist(err) {
		t.Fatalf("backup database created with --no-autosave (stat err = %v)", err)
	}
}

func TestRunReportsScriptFailure(t *testing.T) {
	dir := setupEnv(t)
	scriptPath := filepath.Join(dir, "bad.yaml")
	writeFile(t, scriptPath, `
steps:
  - op: redo
`)
	if _, err := run(t, "--no-autosave", scriptPath); err == nil {
		t.Fatalf("Run error = nil, want failure")
	}
}

func TestRunUnknownGame(t *testing.T) {
	dir := setupEnv(t)
	scriptPath := filepath.Join(dir, "g.yaml")
	writeFile(t, scriptPath, "game: Doom\nsteps: []\n")
	_, err := run(t, "--no-autosave", scriptPath)
	if err == nil || !strings.Contains(err.Error(), `unknown game "Doom"`) {
		t.Fatalf("Run error = %v, want unknown game", err)
	}
}

func TestParseArgs(t *testing.T) {
	a := New([]string{"--map", "e1m1.map", "--recover", "s.yaml"})
	if err := a.parseArgs(); err != nil {
		t.Fatalf("parseArgs error: %v", err)
	}
	if a.mapPath != "e1m1.map" || a.scriptPath != "s.yaml" || !a.restore {
		t.Fatalf("parsed = %+v", a)
	}
	for _, args := range [][]string{{}, {"--map"}, {"a.yaml", "b.yaml"}} {
		if err := New(args).parseArgs(); err == nil {
			t.Fatalf("parseArgs(%q) error = nil", args)
		}
	}
}
