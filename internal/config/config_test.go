package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	berrors "github.com/braid-dev/braid/internal/errors"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Routes != DefaultRoutes {
		t.Errorf("Routes = %q, want %q", cfg.Routes, DefaultRoutes)
	}
	if cfg.Server.Port != DefaultPort || cfg.Server.Host != DefaultHost {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Upload.MaxFileSize != 10<<20 {
		t.Errorf("Upload.MaxFileSize = %d", cfg.Upload.MaxFileSize)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
		"name": "shop",
		"routes": "routes",
		"server": {"port": 8080, "metrics": true},
		"dev": {"watch": ["routes"], "debounceMs": 250}
	}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "shop" || cfg.Server.Port != 8080 || !cfg.Server.Metrics {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Dev.DebounceMS != 250 {
		t.Errorf("DebounceMS = %d", cfg.Dev.DebounceMS)
	}
	// Omitted fields keep their defaults.
	if cfg.Server.Host != DefaultHost || cfg.Static.Dir != "public" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.RoutesPath() != filepath.Join(dir, "routes") {
		t.Errorf("RoutesPath = %q", cfg.RoutesPath())
	}
	if cfg.Address() != "localhost:8080" {
		t.Errorf("Address = %q", cfg.Address())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	var berr *berrors.Error
	if !errors.As(err, &berr) || berr.Code != "B3001" {
		t.Errorf("err = %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"prot": 8080}`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("unknown field should be rejected")
	}
	if !strings.Contains(err.Error(), "B3001") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"name": `)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadRejectsPortOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"server": {"port": 70000}}`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error")
	}
}

func TestPortEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"server": {"port": 8080}}`)
	t.Setenv(PortEnv, "9090")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want env override", cfg.Server.Port)
	}
}

func TestHostEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"server": {"host": "localhost"}}`)
	t.Setenv(HostEnv, "0.0.0.0")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want env override", cfg.Server.Host)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"name": "shop"}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Port = 4000
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	again, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if again.Server.Port != 4000 {
		t.Errorf("Port = %d after round trip", again.Server.Port)
	}
}

func TestCheckRoutes(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"routes": "routes"}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	err = cfg.CheckRoutes()
	var berr *berrors.Error
	if !errors.As(err, &berr) || berr.Code != "B3002" {
		t.Errorf("err = %v, want B3002", err)
	}

	if err := os.Mkdir(filepath.Join(dir, "routes"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := cfg.CheckRoutes(); err != nil {
		t.Errorf("CheckRoutes = %v", err)
	}
}

func TestFindProjectRoot(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{}`)
	nested := filepath.Join(dir, "app", "routes")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	// TempDir may sit behind a symlink; compare resolved paths.
	wantRoot, _ := filepath.EvalSymlinks(dir)
	gotRoot, _ := filepath.EvalSymlinks(root)
	if gotRoot != wantRoot {
		t.Errorf("root = %q, want %q", root, dir)
	}
}
