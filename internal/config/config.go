// Package config loads the YAML configuration for the log parsing pipeline.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/rhanqtl/aiops/internal/storage"
	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration.
type Config struct {
	// LogFormat declares the fields of a raw line, e.g.
	// "<Date> <Time> <Pid> <Level> <Component>: <Content>"
	LogFormat string `yaml:"log_format"`

	// Preprocess lists regexes whose matches are masked with <*> before
	// tokenization, applied in order.
	Preprocess []string `yaml:"preprocess"`

	Depth               int     `yaml:"depth"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxChildren         int     `yaml:"max_children"`
	KeepParams          bool    `yaml:"keep_params"`

	Storage storage.Config `yaml:"storage"`

	Features FeaturesConfig `yaml:"features"`
}

// FeaturesConfig controls the optional HDFS block-id session grouping step.
type FeaturesConfig struct {
	Enabled bool `yaml:"enabled"`

	// LabelFile optionally points to a (BlockId, Label) ground-truth CSV.
	LabelFile string `yaml:"label_file"`
}

// Default returns the configuration defaults applied before unmarshalling.
func Default() Config {
	return Config{
		Depth:               4,
		SimilarityThreshold: 0.4,
		MaxChildren:         100,
		KeepParams:          true,
		Storage:             storage.DefaultConfig(),
	}
}

// Load reads and parses a YAML config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// CompilePreprocess compiles the preprocessing patterns.
func (c Config) CompilePreprocess() ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(c.Preprocess))
	for _, pattern := range c.Preprocess {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling preprocess pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
