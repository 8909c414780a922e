package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/unixpickle/s2sloss"
	"github.com/unixpickle/s2sloss/anyctc"
	"github.com/unixpickle/s2sloss/anysgd"
	"gopkg.in/yaml.v3"
)

// Config captures the knobs for a training run.
type Config struct {
	Loss s2sloss.Params `yaml:"loss"`

	// Optimizer is "sgd", "momentum", or "adam".
	Optimizer string `yaml:"optimizer"`

	// Decoder is "greedy" or "prefix".
	// BlankThreshold is the blankThresh for prefix search.
	Decoder        string  `yaml:"decoder"`
	BlankThreshold float64 `yaml:"blank_threshold"`

	Steps        int     `yaml:"steps"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Seed         int64   `yaml:"seed"`
	LogEvery     int     `yaml:"log_every"`

	Data DataConfig `yaml:"data"`

	OutFile string `yaml:"out_file"`
}

// DataConfig describes the synthetic dataset.
type DataConfig struct {
	// Symbols is the number of non-blank labels.
	Symbols    int     `yaml:"symbols"`
	TrainCount int     `yaml:"train_count"`
	TestCount  int     `yaml:"test_count"`
	MaxLabel   int     `yaml:"max_label"`
	Noise      float64 `yaml:"noise"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Steps        int
	BatchSize    int
	LearningRate float64
	Seed         int64
	LogEvery     int
	OutFile      string
}

// DefaultConfig returns the configuration used when no
// config file is given.
func DefaultConfig() *Config {
	return &Config{
		Optimizer:      "adam",
		Decoder:        "prefix",
		BlankThreshold: anyctc.DefaultBlankThreshold,
		Steps:          2000,
		BatchSize:      16,
		LearningRate:   0.01,
		Seed:           1,
		LogEvery:       100,
		Data: DataConfig{
			Symbols:    5,
			TrainCount: 512,
			TestCount:  64,
			MaxLabel:   6,
			Noise:      0.3,
		},
		OutFile: "decoder.bin",
	}
}

// LoadConfig reads a YAML config on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Steps > 0 {
		c.Steps = o.Steps
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
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.OutFile != "" {
		c.OutFile = o.OutFile
	}
}

// Transformer creates the gradient transformer for the
// configured optimizer.
func (c *Config) Transformer() anysgd.Transformer {
	switch c.Optimizer {
	case "momentum":
		return &anysgd.Momentum{Momentum: 0.9}
	case "adam":
		return &anysgd.Adam{}
	default:
		return nil
	}
}

// Decode finds label sequences for a batch of logits
// with the configured decoder.
func (c *Config) Decode(in *s2sloss.Input) [][]int {
	if c.Decoder == "greedy" {
		return anyctc.GreedyLabels(in)
	}
	return anyctc.BestLabels(in, c.BlankThreshold)
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	switch c.Optimizer {
	case "sgd", "momentum", "adam":
	default:
		return fmt.Errorf("unknown optimizer: %q", c.Optimizer)
	}
	switch c.Decoder {
	case "greedy", "prefix":
	default:
		return fmt.Errorf("unknown decoder: %q", c.Decoder)
	}
	if c.BlankThreshold > 0 {
		return errors.New("blank_threshold must be <= 0")
	}
	if c.Steps <= 0 {
		return errors.New("steps must be > 0")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch_size must be > 0")
	}
	if c.LearningRate <= 0 {
		return errors.New("learning_rate must be > 0")
	}
	if c.LogEvery <= 0 {
		return errors.New("log_every must be > 0")
	}
	if c.Data.Symbols < 1 {
		return errors.New("data.symbols must be > 0")
	}
	if c.Data.TrainCount < 1 || c.Data.TestCount < 1 {
		return errors.New("data counts must be > 0")
	}
	if c.Data.MaxLabel < 1 {
		return errors.New("data.max_label must be > 0")
	}
	return nil
}
