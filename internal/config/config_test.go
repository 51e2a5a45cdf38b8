package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/mapforge/internal/config/loader"
	"github.com/dshills/mapforge/internal/logging"
)

func mapFS(files map[string]string) loader.FileSystem {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return loader.FSAdapter{FS: fsys}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.History.MaxItems != 10 {
		t.Errorf("History.MaxItems = %d, want 10", cfg.History.MaxItems)
	}
	if cfg.LogLevel() != logging.LogLevelInfo {
		t.Errorf("LogLevel() = %v", cfg.LogLevel())
	}
}

func TestLoadLayers(t *testing.T) {
	fsys := mapFS(map[string]string{
		"mapforge.toml": `
[history]
max_items = 25

[logging]
level = "debug"

[script]
timeout = "2s"
call_limit = 500
`,
	})

	cfg, err := Load(Options{
		Path: "mapforge.toml",
		FS:   fsys,
		Environment: map[string]string{
			"MAPFORGE_LOG_FORMAT":   "json",
			"MAPFORGE_SCRIPT_PATHS": "a.lua:b.lua",
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.History.MaxItems = 25
	want.Logging.Level = "debug"
	want.Logging.Format = "json"
	want.Script.Timeout = Duration{2 * time.Second}
	want.Script.CallLimit = 500
	want.Script.Paths = []string{"a.lua", "b.lua"}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	fsys := mapFS(map[string]string{
		"mapforge.yaml": "history:\n  max_items: 5\n",
	})
	cfg, err := Load(Options{
		Path:        "mapforge.yaml",
		FS:          fsys,
		Environment: map[string]string{"MAPFORGE_HISTORY_MAX_ITEMS": "7"},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.History.MaxItems != 7 {
		t.Errorf("History.MaxItems = %d, want 7", cfg.History.MaxItems)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(Options{Path: "absent.toml", FS: mapFS(nil), SkipEnv: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		file string
		path string
	}{
		{"zero max items", "[history]\nmax_items = 0\n", "history.max_items"},
		{"negative max items", "[history]\nmax_items = -3\n", "history.max_items"},
		{"bad format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"negative timeout", "[script]\ntimeout = \"-1s\"\n", "script.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Options{
				Path:    "mapforge.toml",
				FS:      mapFS(map[string]string{"mapforge.toml": tt.file}),
				SkipEnv: true,
			})
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("Load() error = %v, want ErrValidationFailed", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Path != tt.path {
				t.Errorf("ValidationError path = %v, want %s", ve, tt.path)
			}
		})
	}
}

func TestLoadParseError(t *testing.T) {
	_, err := Load(Options{
		Path:    "mapforge.toml",
		FS:      mapFS(map[string]string{"mapforge.toml": "[history\n"}),
		SkipEnv: true,
	})
	var pe *loader.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load() error = %v, want *loader.ParseError", err)
	}
}

func TestLoadBadEnv(t *testing.T) {
	_, err := Load(Options{
		Environment: map[string]string{"MAPFORGE_HISTORY_MAX_ITEMS": "many"},
	})
	if err == nil {
		t.Fatal("Load() with non-numeric env value succeeded")
	}
}

func TestReloaderReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapforge.toml")
	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("[history]\nmax_items = 3\n")

	opts := Options{Path: path, SkipEnv: true}
	cfg, err := Load(opts)
	if err != nil {
		t.Fatal(err)
	}
	r := NewReloader(opts, cfg, nil)

	var got []int
	sub := r.OnChange(func(c Config) { got = append(got, c.History.MaxItems) })
	defer sub.Unsubscribe()

	write("[history]\nmax_items = 4\n")
	if _, err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	write("[history]\nmax_items = 0\n")
	if _, err := r.Reload(); err == nil {
		t.Fatal("Reload() of invalid file succeeded")
	}

	if r.Current().History.MaxItems != 4 {
		t.Errorf("Current().History.MaxItems = %d, want 4", r.Current().History.MaxItems)
	}
	if diff := cmp.Diff([]int{4}, got); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestReloaderWatchesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapforge.yaml")
	if err := os.WriteFile(path, []byte("history:\n  max_items: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := Options{Path: path, SkipEnv: true}
	r := NewReloader(opts, Default(), nil)

	changed := make(chan Config, 4)
	r.OnChange(func(c Config) { changed <- c })

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = r.Stop() }()

	if err := r.Start(); !errors.Is(err, ErrReloaderRunning) {
		t.Errorf("second Start() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("history:\n  max_items: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// An editor may expose a truncated file first; wait for the final one.
	timeout := time.After(3 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.History.MaxItems == 9 {
				return
			}
		case <-timeout:
			t.Fatal("no reload observed")
		}
	}
}

func TestReloaderWithoutPath(t *testing.T) {
	r := NewReloader(Options{}, Default(), nil)
	if err := r.Start(); err != nil {
		t.Errorf("Start() error = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
