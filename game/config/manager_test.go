package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/parking-lot-game/game/engine"
)

func createValidConfig() *engine.PuzzleConfig {
	return &engine.PuzzleConfig{
		Name:        "Test Config",
		Description: "Test configuration",
		Layout: []string{
			"..B.",
			"AAB.",
			"....",
			"....",
		},
		Messages: engine.Messages{
			Welcome: "Welcome!",
			Solved:  "Solved in %d moves!",
		},
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.PuzzleConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("prefers classic", func(t *testing.T) {
		dir := t.TempDir()
		first := createValidConfig()
		first.Name = "Alpha"
		writeConfigFile(t, dir, "alpha", first)
		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" || manager.DefaultID() != "classic" {
			t.Errorf("Expected classic default, got %q (%s)", manager.GetDefault().Name, manager.DefaultID())
		}
	})

	t.Run("falls back to first valid config", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "aaa.json"), []byte("{"), 0644)
		writeConfigFile(t, dir, "bbb", createValidConfig())

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.DefaultID() != "bbb" {
			t.Errorf("Expected bbb default, got %s", manager.DefaultID())
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory uses built-in default", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got error: %v", err)
		}
		def := manager.GetDefault()
		if def == nil || def.Name != engine.DefaultPuzzleConfig().Name {
			t.Errorf("Expected built-in default, got %+v", def)
		}
		if err := engine.ValidatePuzzleConfig(def); err != nil {
			t.Errorf("Built-in default is invalid: %v", err)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	easy := createValidConfig()
	easy.Name = "Easy"
	easy.MaxMoves = 20
	writeConfigFile(t, dir, "easy", easy)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("easy")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Easy" || config.MaxMoves != 20 {
			t.Errorf("Unexpected config %+v", config)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("easy.json")
		if err != nil || config.Name != "Easy" {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("easy")
		config2, _ := manager.LoadConfig("easy")
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("reject path traversal", func(t *testing.T) {
		_, err := manager.LoadConfig("../etc/passwd")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		bad := createValidConfig()
		bad.Layout = []string{"..AA", "...."}
		writeConfigFile(t, dir, "solved", bad)

		_, err := manager.LoadConfig("solved")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed json", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name":`), 0644)
		_, err := manager.LoadConfig("broken")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "zeta", createValidConfig())
	tower := createValidConfig()
	tower.Name = "Tower"
	tower.Layout = []string{"C..", "A.B", "A.B"}
	tower.ExitSide = "up"
	writeConfigFile(t, dir, "tower", tower)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644)
	os.Mkdir(filepath.Join(dir, "sub.json"), 0755)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d", len(configs))
	}

	info := configs[0]
	if info.ConfigID != "tower" || info.Filename != "tower.json" {
		t.Errorf("Expected tower first, got %+v", info)
	}
	if info.Width != 3 || info.Height != 3 || info.Vehicles != 3 || info.Exit != "edge:up" {
		t.Errorf("Unexpected tower summary %+v", info)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	config := createValidConfig()
	config.Name = "Saved"
	if err := manager.SaveConfig("saved", config); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Errorf("Expected file on disk: %v", err)
	}

	loaded, err := manager.LoadConfig("saved")
	if err != nil || loaded.Name != "Saved" {
		t.Errorf("Failed to load saved config: %v", err)
	}

	if err := manager.SetDefault("saved"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.DefaultID() != "saved" {
		t.Errorf("Expected saved default, got %s", manager.DefaultID())
	}

	invalid := createValidConfig()
	invalid.Messages.Welcome = ""
	if err := manager.SaveConfig("invalid", invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := manager.SaveConfig("../escape", createValidConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for bad name, got %v", err)
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	config := createValidConfig()
	config.Name = "Before"
	writeConfigFile(t, dir, "classic", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	config.Name = "After"
	writeConfigFile(t, dir, "classic", config)
	if got, _ := manager.LoadConfig("classic"); got.Name != "Before" {
		t.Errorf("Expected cached config, got %q", got.Name)
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	if manager.GetDefault().Name != "After" {
		t.Errorf("Expected refreshed default, got %q", manager.GetDefault().Name)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())
	writeConfigFile(t, dir, "other", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				manager.LoadConfig("other")
			case 1:
				manager.ListConfigs()
			case 2:
				manager.GetDefault()
			case 3:
				manager.RefreshCache()
			}
		}(i)
	}
	wg.Wait()
}

func TestShippedConfigs(t *testing.T) {
	dir := filepath.Join("..", "..", "configs")
	if _, err := os.Stat(dir); err != nil {
		t.Skip("no configs directory")
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if manager.DefaultID() != DefaultConfigID {
		t.Errorf("Expected %s default, got %s", DefaultConfigID, manager.DefaultID())
	}

	names, _ := manager.configNames()
	configs, _ := manager.ListConfigs()
	if len(configs) != len(names) {
		t.Errorf("Expected every shipped config to be valid: %d of %d", len(configs), len(names))
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "good", createValidConfig())
	os.WriteFile(filepath.Join(dir, "legacy.json"), []byte(`{"name":"Legacy","start_city":"Austin"}`), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if _, err := manager.LoadConfig("legacy"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for unknown field, got %v", err)
	}
	if _, err := manager.LoadConfig("good"); err != nil {
		t.Errorf("Expected good config to load, got %v", err)
	}
}
