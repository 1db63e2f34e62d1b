package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/popsim/internal/engine"
	"github.com/san-kum/popsim/internal/population"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCores    = 1
	DefaultDataDir  = "runs"
	DefaultStorage  = StorageFile
	DefaultLogLevel = "info"

	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config is one population run: the simulation, where the population data
// lives and how to execute and persist the run.
type Config struct {
	Simulation    engine.Definition `yaml:"simulation"`
	Cores         int               `yaml:"cores"`
	DataDir       string            `yaml:"data_dir"`
	Storage       string            `yaml:"storage"`
	LogLevel      string            `yaml:"log_level"`
	Population    string            `yaml:"population"`
	Aging         string            `yaml:"aging,omitempty"`
	InitialValues string            `yaml:"initial_values,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Simulation: engine.Definition{
			Name:           "Simulation",
			Model:          "pk",
			Integrator:     "rk4",
			Dt:             0.01,
			Duration:       24,
			OutputInterval: 0.5,
		},
		Cores:    DefaultCores,
		DataDir:  DefaultDataDir,
		Storage:  DefaultStorage,
		LogLevel: DefaultLogLevel,
	}
}

// Load overlays the YAML file at path on DefaultConfig. Relative dataset
// paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Population = resolve(dir, cfg.Population)
	cfg.Aging = resolve(dir, cfg.Aging)
	cfg.InitialValues = resolve(dir, cfg.InitialValues)
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func (c *Config) Validate() error {
	if c.Storage != StorageFile && c.Storage != StorageSQLite {
		return fmt.Errorf("storage must be %q or %q, got %q", StorageFile, StorageSQLite, c.Storage)
	}
	if c.Population == "" {
		return fmt.Errorf("no population file")
	}
	return c.Simulation.Validate()
}

// Datasets reads the population, aging and initial value tables. The
// optional tables are nil when not configured.
func (c *Config) Datasets() (pop *population.ValueTable, aging *population.AgingTable, initial *population.ValueTable, err error) {
	if pop, err = population.LoadValueTable(c.Population); err != nil {
		return nil, nil, nil, err
	}
	if c.Aging != "" {
		if aging, err = population.LoadAgingTable(c.Aging); err != nil {
			return nil, nil, nil, err
		}
	}
	if c.InitialValues != "" {
		if initial, err = population.LoadValueTable(c.InitialValues); err != nil {
			return nil, nil, nil, err
		}
	}
	return pop, aging, initial, nil
}
