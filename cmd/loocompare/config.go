package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/kshedden/bayesloo/dataset"
)

// ModelConfig names one model and the file holding its posterior draws.
type ModelConfig struct {
	Name   string `yaml:"name"`
	Family string `yaml:"family"`
	Link   string `yaml:"link,omitempty"`
	Draws  string `yaml:"draws"`

	// Column names in the draws file, if nil the workshop names
	// alpha, beta and sigma or phi are used
	Columns *dataset.DrawNames `yaml:"columns,omitempty"`
}

// Config represents a comparison configuration file.  Pointer fields
// distinguish "not set" from zero values.
type Config struct {
	Data    string             `yaml:"data"`
	Columns dataset.ColumnSpec `yaml:"columns"`
	Models  []ModelConfig      `yaml:"models"`

	KThreshold *float64 `yaml:"k_threshold,omitempty"`
	Workers    *int     `yaml:"workers,omitempty"`
	Format     string   `yaml:"format,omitempty"`
}

// LoadConfig reads a configuration file.  Relative paths in the file are
// taken relative to the directory holding it.
func LoadConfig(path string) (Config, error) {

	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	cfg.Data = resolve(cfg.Data)
	for i := range cfg.Models {
		cfg.Models[i].Draws = resolve(cfg.Models[i].Draws)
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {

	if cfg.Data == "" {
		return fmt.Errorf("no data file given")
	}
	if cfg.Columns.Response == "" {
		return fmt.Errorf("no response column given")
	}
	if len(cfg.Models) == 0 {
		return fmt.Errorf("no models given")
	}

	for i, m := range cfg.Models {
		if m.Name == "" {
			return fmt.Errorf("model %d has no name", i+1)
		}
		if m.Draws == "" {
			return fmt.Errorf("model '%s' has no draws file", m.Name)
		}
	}

	return nil
}

// SaveConfig writes a configuration file.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyReportConfig applies config file defaults to the report flags
// that were not explicitly set.
func applyReportConfig(c *cli.Command, cfg Config) {
	if cfg.KThreshold != nil && !c.IsSet("k-threshold") {
		kThreshold = *cfg.KThreshold
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		workers = *cfg.Workers
	}
	if cfg.Format != "" && !c.IsSet("format") {
		outFormat = cfg.Format
	}
}
