// Package config loads runtime parameters from YAML, TOML, or JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeycumines/go-hostbridge/hostloop"
	"github.com/joeycumines/go-hostbridge/internal/logging"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters. Load starts from Default, so keys absent
// from a file keep their default values.
type Config struct {
	Loop    Loop    `json:"loop" yaml:"loop" toml:"loop"`
	Invoker Invoker `json:"invoker" yaml:"invoker" toml:"invoker"`
	Tasks   Tasks   `json:"tasks" yaml:"tasks" toml:"tasks"`
	Pool    Pool    `json:"pool" yaml:"pool" toml:"pool"`
	Log     Log     `json:"log" yaml:"log" toml:"log"`
	Metrics Metrics `json:"metrics" yaml:"metrics" toml:"metrics"`
}

type Loop struct {
	// QueueBudget is the maximum number of tasks executed per tick.
	QueueBudget int `json:"queue_budget" yaml:"queue_budget" toml:"queue_budget"`
}

type Invoker struct {
	// Delay is the pause between cross-thread callback iterations.
	Delay Duration `json:"delay" yaml:"delay" toml:"delay"`
}

type Tasks struct {
	// StepDelay is the duration of each step of simulated work.
	StepDelay Duration `json:"step_delay" yaml:"step_delay" toml:"step_delay"`
}

type Pool struct {
	// Workers bounds the worker pool, 0 meaning GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers" toml:"workers"`
}

type Log struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

type Metrics struct {
	// Addr is the listen address of the metrics endpoint, empty to disable.
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// AllowedOrigins enables CORS on the metrics endpoint, for the listed origins.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Loop:    Loop{QueueBudget: hostloop.DefaultQueueBudget},
		Invoker: Invoker{Delay: Duration(time.Second)},
		Tasks:   Tasks{StepDelay: Duration(time.Second)},
		Log:     Log{Level: `info`, Format: logging.FormatConsole},
	}
}

// Load reads a configuration file based on its extension, over Default.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("config: empty path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("config: unsupported extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid value, joined.
func (c Config) Validate() error {
	var errs []error
	if c.Loop.QueueBudget <= 0 {
		errs = append(errs, fmt.Errorf("loop.queue_budget must be positive, got %d", c.Loop.QueueBudget))
	}
	if c.Invoker.Delay < 0 {
		errs = append(errs, fmt.Errorf("invoker.delay must not be negative, got %s", c.Invoker.Delay))
	}
	if c.Tasks.StepDelay < 0 {
		errs = append(errs, fmt.Errorf("tasks.step_delay must not be negative, got %s", c.Tasks.StepDelay))
	}
	if c.Pool.Workers < 0 {
		errs = append(errs, fmt.Errorf("pool.workers must not be negative, got %d", c.Pool.Workers))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case ``, logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format must be %s or %s, got %q", logging.FormatConsole, logging.FormatJSON, c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Duration is a time.Duration, encoded as a string like "250ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
