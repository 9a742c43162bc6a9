package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RoshanGamage01/handwritten-image-classifier/internal/dataset"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	Topology     []int   `yaml:"topology"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Seed         int64   `yaml:"seed"`
	Shuffle      bool    `yaml:"shuffle"`
	TrainRoot    string  `yaml:"train_root"`
	TestRoot     string  `yaml:"test_root"`
	ParamsPath   string  `yaml:"params_path"`
	Resume       bool    `yaml:"resume"`
	LogEvery     int     `yaml:"log_every"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
	Shuffle      bool
	TrainRoot    string
	TestRoot     string
	ParamsPath   string
	Resume       bool
	LogEvery     int
}

// Default returns the layer sizes and hyperparameters the digit classifier
// is usually trained with.
func Default() *Config {
	return &Config{
		Topology:     []int{784, 30, 30, 10},
		Epochs:       30,
		BatchSize:    10,
		LearningRate: 3.0,
		ParamsPath:   "parameters.json",
		LogEvery:     1,
	}
}

// Load reads a Config from YAML. Keys missing from the file keep their
// Default values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func parseYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.Shuffle {
		c.Shuffle = true
	}
	if o.TrainRoot != "" {
		c.TrainRoot = o.TrainRoot
	}
	if o.TestRoot != "" {
		c.TestRoot = o.TestRoot
	}
	if o.ParamsPath != "" {
		c.ParamsPath = o.ParamsPath
	}
	if o.Resume {
		c.Resume = true
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
}

// Validate verifies the config is runnable for training.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Topology) < 2 {
		return fmt.Errorf("topology needs at least 2 layers (got %v)", c.Topology)
	}
	for i, size := range c.Topology {
		if size <= 0 {
			return fmt.Errorf("topology layer %d must be > 0 (got %d)", i, size)
		}
	}
	if c.Topology[0] != dataset.FeatureSize {
		return fmt.Errorf("topology input layer must be %d to match %dx%d images (got %d)",
			dataset.FeatureSize, dataset.ImageSize, dataset.ImageSize, c.Topology[0])
	}
	if c.TrainRoot == "" {
		return errors.New("train_root must be set")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.ParamsPath == "" {
		return errors.New("params_path must be set")
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 1
	}
	return nil
}

// ValidateEval verifies the config can evaluate saved parameters.
func (c *Config) ValidateEval() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.ParamsPath == "" {
		return errors.New("params_path must be set")
	}
	if c.TestRoot == "" {
		return errors.New("test_root must be set")
	}
	return nil
}

// Classes returns the number of output classes.
func (c *Config) Classes() int {
	return c.Topology[len(c.Topology)-1]
}
