package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/parking-lot-game/game/config"
	"github.com/wricardo/parking-lot-game/game/engine"
)

func classicConfig() *engine.PuzzleConfig {
	return &engine.PuzzleConfig{
		Name:        "Classic",
		Description: "test",
		Layout: []string{
			"BBB..C",
			"..D..C",
			"AAD..C",
			"..EEFF",
			"G.....",
			"G.HHH.",
		},
		Messages: engine.Messages{Welcome: "hi", Solved: "%d"},
	}
}

func TestExitPath(t *testing.T) {
	tests := []struct {
		name     string
		layout   []string
		exitSide string
		want     ExitPath
	}{
		{
			name:   "classic",
			layout: classicConfig().Layout,
			want:   ExitPath{Displacement: 4, Blockers: []string{"D", "C"}, Reachable: true},
		},
		{
			name:   "clear",
			layout: []string{"AA..", "B..."},
			want:   ExitPath{Displacement: 2, Reachable: true},
		},
		{
			name:   "wall",
			layout: []string{"AA#.", "BB.."},
			want:   ExitPath{},
		},
		{
			name:     "upwards",
			layout:   []string{"C..", "A.B", "A.B"},
			exitSide: "up",
			want:     ExitPath{Displacement: -1, Blockers: []string{"C"}, Reachable: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := classicConfig()
			cfg.Layout = tt.layout
			cfg.ExitSide = tt.exitSide
			lot, err := engine.NewLotFromConfig(cfg)
			if err != nil {
				t.Fatalf("Failed to parse layout: %v", err)
			}

			got := exitPath(lot)
			if got.Displacement != tt.want.Displacement || got.Reachable != tt.want.Reachable {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if strings.Join(got.Blockers, ",") != strings.Join(tt.want.Blockers, ",") {
				t.Errorf("Expected blockers %v, got %v", tt.want.Blockers, got.Blockers)
			}
		})
	}
}

func TestFormatHistogram(t *testing.T) {
	got := formatHistogram(map[int]int{3: 3, 2: 5})
	if got != "len2:5 len3:3" {
		t.Errorf("Expected 'len2:5 len3:3', got %q", got)
	}
	if got := formatHistogram(nil); got != "" {
		t.Errorf("Expected empty histogram, got %q", got)
	}
}

func TestAnalyzeConfig(t *testing.T) {
	var out bytes.Buffer
	if err := analyzeConfig(&out, "classic", classicConfig()); err != nil {
		t.Fatalf("analyzeConfig failed: %v", err)
	}

	report := out.String()
	for _, want := range []string{
		"Grid Size: 6 x 6",
		"Vehicles: 8 (horizontal 5, vertical 3)",
		"Lengths: len2:5 len3:3",
		"Walls: 0",
		"Goal: A at (0, 2), horizontal, length 2",
		"Exit: edge:right",
		"Exit distance: +4, blocked by D,C",
		"Initial legal moves: 7 across 4 vehicles",
		"A:[] B:[1 2] C:[] D:[] E:[-2 -1] F:[] G:[-1] H:[-1 1]",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected %q in report:\n%s", want, report)
		}
	}
}

func TestAnalyzeConfig_Invalid(t *testing.T) {
	cfg := classicConfig()
	cfg.Layout = []string{"BB.", "..."}

	var out bytes.Buffer
	if err := analyzeConfig(&out, "broken", cfg); err == nil {
		t.Error("Expected error for layout without goal vehicle")
	}
}

func TestAnalyzeAll(t *testing.T) {
	manager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	var out bytes.Buffer
	if err := analyzeAll(&out, manager, nil); err != nil {
		t.Fatalf("analyzeAll failed: %v\n%s", err, out.String())
	}
	for _, want := range []string{"=== Analyzing classic ===", "=== Analyzing tower ===", "Exit: edge:up"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in report", want)
		}
	}

	out.Reset()
	err = analyzeAll(&out, manager, []string{"easy", "nope"})
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("Expected error naming the missing config, got %v", err)
	}
	if !strings.Contains(out.String(), "=== Analyzing easy ===") {
		t.Errorf("Expected easy to be analyzed before the failure:\n%s", out.String())
	}
}

func TestCommand(t *testing.T) {
	var out bytes.Buffer
	err := newCommand(&out).Run(context.Background(), []string{"analyze", "--config-dir", "../../configs", "classic"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Name: Classic Rush Hour") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
	if strings.Contains(out.String(), "=== Analyzing easy ===") {
		t.Errorf("Expected only the named config to be analyzed")
	}
}

func TestCommand_FilePaths(t *testing.T) {
	dir := t.TempDir()
	data, err := json.Marshal(classicConfig())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	good := filepath.Join(dir, "mine.json")
	os.WriteFile(good, data, 0644)

	var out bytes.Buffer
	err = newCommand(&out).Run(context.Background(), []string{"analyze", "--config-dir", "../../configs", good})
	if err != nil {
		t.Fatalf("Run failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Name: Classic\n") {
		t.Errorf("Expected the file's puzzle to be analyzed:\n%s", out.String())
	}

	// files go through the same strict decoder as the catalog
	loose := filepath.Join(dir, "loose.json")
	os.WriteFile(loose, []byte(strings.Replace(string(data), "{", `{"fuel":3,`, 1)), 0644)
	out.Reset()
	err = newCommand(&out).Run(context.Background(), []string{"analyze", "--config-dir", "../../configs", loose})
	if err == nil || !strings.Contains(out.String(), "unknown field") {
		t.Errorf("Expected unknown field error, got %v\n%s", err, out.String())
	}
}
