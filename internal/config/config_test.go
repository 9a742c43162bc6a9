package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digitnet.yaml")
	content := `# demo run
topology: [784, 100, 10]
epochs: 5
batch_size: 20
learning_rate: 0.5
train_root: /data/train
test_root: "/data/test"
shuffle: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Topology) != 3 || cfg.Topology[1] != 100 || cfg.Classes() != 10 {
		t.Fatalf("unexpected topology %v", cfg.Topology)
	}
	if cfg.Epochs != 5 || cfg.BatchSize != 20 || cfg.LearningRate != 0.5 || !cfg.Shuffle {
		t.Fatalf("unexpected hyperparameters %+v", cfg)
	}
	if cfg.TestRoot != "/data/test" {
		t.Fatalf("unexpected test root %q", cfg.TestRoot)
	}
	if cfg.ParamsPath != "parameters.json" {
		t.Fatalf("expected default params path, got %q", cfg.ParamsPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseRejectsUnknownKey(t *testing.T) {
	_, err := parseYAML(strings.NewReader("stepz: 3\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := parseYAML(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parseYAML: %v", err)
	}
	if cfg.Epochs != 30 || cfg.BatchSize != 10 || cfg.LearningRate != 3.0 {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{Epochs: 2, LearningRate: 0.1, TrainRoot: "/x", Shuffle: true})
	if cfg.Epochs != 2 || cfg.LearningRate != 0.1 || cfg.TrainRoot != "/x" || !cfg.Shuffle {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.BatchSize != 10 {
		t.Fatalf("zero override replaced batch size: %d", cfg.BatchSize)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.TrainRoot = "/data"
		return cfg
	}
	cases := map[string]func(*Config){
		"short topology":  func(c *Config) { c.Topology = []int{5} },
		"zero layer":      func(c *Config) { c.Topology = []int{784, 0, 2} },
		"input size":      func(c *Config) { c.Topology = []int{100, 10} },
		"no train root":   func(c *Config) { c.TrainRoot = "" },
		"zero epochs":     func(c *Config) { c.Epochs = 0 },
		"zero batch size": func(c *Config) { c.BatchSize = 0 },
		"zero rate":       func(c *Config) { c.LearningRate = 0 },
		"no params path":  func(c *Config) { c.ParamsPath = "" },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected a validation error", name)
		}
	}

	cfg := valid()
	cfg.LogEvery = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.LogEvery != 1 {
		t.Fatalf("expected log_every default 1, got %d", cfg.LogEvery)
	}
}

func TestValidateEval(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateEval(); err == nil {
		t.Fatal("expected an error without test_root")
	}
	cfg.TestRoot = "/data/test"
	if err := cfg.ValidateEval(); err != nil {
		t.Fatalf("ValidateEval: %v", err)
	}
}
