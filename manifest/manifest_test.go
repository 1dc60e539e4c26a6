package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `
[project]
name = "voorbeeld"
version = "0.1.0"

[source]
dirs = ["src"]
entry = "src/main.ark"

[limits]
stack-slots = 1024
frames = 64
max-steps = 100000

[cache]
enabled = true
path = ".arkaan-cache.db"
`

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "arkaan.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, sampleManifest)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if m.Project.Name != "voorbeeld" || m.Project.Version != "0.1.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "src" {
		t.Errorf("source dirs = %v", m.Source.Dirs)
	}
	if m.Limits.StackSlots != 1024 || m.Limits.Frames != 64 || m.Limits.MaxSteps != 100000 {
		t.Errorf("limits = %+v", m.Limits)
	}
	if m.Limits.MaxList != 0 {
		t.Errorf("unset limit should stay zero, got %d", m.Limits.MaxList)
	}
	if !m.Cache.Enabled {
		t.Error("cache not enabled")
	}
	if m.Dir != dir {
		t.Errorf("Dir = %q, want %q", m.Dir, dir)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("loading a missing manifest succeeded")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project\nname =")
	if _, err := Load(dir); err == nil {
		t.Error("malformed manifest parsed")
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, sampleManifest)

	nested := filepath.Join(root, "src", "dieper")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := Find(nested)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil {
		t.Fatal("manifest not found from nested dir")
	}
	if m.Project.Name != "voorbeeld" {
		t.Errorf("found wrong manifest: %+v", m.Project)
	}
}

func TestFindNone(t *testing.T) {
	m, err := Find(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("found a manifest where none exists: %+v", m)
	}
}

func TestCachePath(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, sampleManifest)
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if got := m.CachePath("/verstek/pad.db"); got != filepath.Join(dir, ".arkaan-cache.db") {
		t.Errorf("CachePath = %q", got)
	}

	var none *Manifest
	if got := none.CachePath("/verstek/pad.db"); got != "/verstek/pad.db" {
		t.Errorf("nil manifest CachePath = %q", got)
	}
}
