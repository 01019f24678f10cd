// Package config loads the YAML host configuration a scheduler is
// constructed from: which loci this host serves, tick cadence, worker pool
// size, and per-vertex parameters, following the teacher's
// nested-struct-with-yaml-tags convention.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// HostConfig is the YAML-driven configuration for one scheduler host.
type HostConfig struct {
	Host struct {
		Loci           []string      `yaml:"loci"`
		MaxTicks       int           `yaml:"max_ticks"`
		TickInterval   time.Duration `yaml:"tick_interval"`
		WorkerPoolSize int           `yaml:"worker_pool_size"`
	} `yaml:"host"`

	// Vertices maps a vertex name to its evaluator parameters, e.g.
	// vertices.cpu-utilization.threshold. Absence of an entry is only a
	// ConfigurationError for a vertex tagged "requires-params": "true" —
	// most vertices need no parameters at all.
	Vertices map[string]map[string]string `yaml:"vertices"`

	Storage struct {
		Type string `yaml:"type"`
		DSN  string `yaml:"dsn"`
	} `yaml:"storage"`
}

// UnmarshalYAML decodes a HostConfig by hand for the host.tick_interval
// field: yaml.v3 has no built-in support for time.Duration (it is just an
// int64 underlying type, so the default decode would reject a "1s"
// scalar), so tick_interval is read as a string and parsed explicitly.
func (c *HostConfig) UnmarshalYAML(node *yaml.Node) error {
	type rawHost struct {
		Loci           []string `yaml:"loci"`
		MaxTicks       int      `yaml:"max_ticks"`
		TickInterval   string   `yaml:"tick_interval"`
		WorkerPoolSize int      `yaml:"worker_pool_size"`
	}
	var raw struct {
		Host     rawHost                      `yaml:"host"`
		Vertices map[string]map[string]string `yaml:"vertices"`
		Storage  struct {
			Type string `yaml:"type"`
			DSN  string `yaml:"dsn"`
		} `yaml:"storage"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	c.Host.Loci = raw.Host.Loci
	c.Host.MaxTicks = raw.Host.MaxTicks
	c.Host.WorkerPoolSize = raw.Host.WorkerPoolSize
	c.Vertices = raw.Vertices
	c.Storage = raw.Storage

	if raw.Host.TickInterval != "" {
		d, err := time.ParseDuration(raw.Host.TickInterval)
		if err != nil {
			return fmt.Errorf("config: parse tick_interval %q: %w", raw.Host.TickInterval, err)
		}
		c.Host.TickInterval = d
	}
	return nil
}

// Load reads and parses a HostConfig from path, applying defaults for any
// field left unset in the file.
func Load(path string) (*HostConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg HostConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued fields with the scheduler's defaults.
func (c *HostConfig) ApplyDefaults() {
	if c.Host.MaxTicks <= 0 {
		c.Host.MaxTicks = 60
	}
	if c.Host.TickInterval <= 0 {
		c.Host.TickInterval = time.Second
	}
	if c.Host.WorkerPoolSize <= 0 {
		c.Host.WorkerPoolSize = 16
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.DSN == "" {
		c.Storage.DSN = "rca.db"
	}
}

// VertexParams returns the configured parameters for name, or nil if the
// vertex has none. Absence alone is never an error — the Partitioner
// decides whether a particular vertex requires them.
func (c *HostConfig) VertexParams(name string) map[string]string {
	return c.Vertices[name]
}
