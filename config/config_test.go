package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/lakshan-sameera/pdfcombiner/config"
)

func TestLoadMissing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != config.Default() {
		t.Errorf("Load = %+v, want defaults %+v", cfg, config.Default())
	}
	if !cfg.AutoOpen {
		t.Error("AutoOpen defaults to false")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := config.Config{LastDirectory: "/data/scans", HistoryFile: "/data/history.json", StrictVerify: true}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != cfg {
		t.Errorf("Load = %+v, want %+v", got, cfg)
	}
	if p, _ := got.HistoryPath(); p != "/data/history.json" {
		t.Errorf("HistoryPath = %q", p)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("last_directory=/tmp"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err == nil {
		t.Error("expected a parse error")
	}
	if cfg != config.Default() {
		t.Errorf("corrupt config = %+v, want defaults", cfg)
	}
}

func TestRememberDirectory(t *testing.T) {
	dir := t.TempDir()
	var cfg config.Config
	cfg.RememberDirectory(filepath.Join(dir, "a.pdf"))
	if cfg.LastDirectory != dir {
		t.Errorf("LastDirectory = %q, want %q", cfg.LastDirectory, dir)
	}
	cfg.RememberDirectory("")
	if cfg.LastDirectory != dir {
		t.Errorf("empty path changed LastDirectory to %q", cfg.LastDirectory)
	}
}

func TestDefaultPaths(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honoured on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	t.Setenv("HOME", "/home/tester")
	if p, err := config.DefaultPath(); err != nil || p != "/xdg/pdfcombiner/config.json" {
		t.Errorf("DefaultPath = %q, %v", p, err)
	}
	if p, err := (config.Config{}).HistoryPath(); err != nil || p != "/xdg/pdfcombiner/history.json" {
		t.Errorf("HistoryPath = %q, %v", p, err)
	}
}
