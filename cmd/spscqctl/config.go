package main

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/nanoqueue/spscq/common/go/logging"
)

// Config is the validating wrapper around config; see UnmarshalYAML.
type Config config

type config struct {
	// Logging is the logging subsystem configuration.
	Logging logging.Config `yaml:"logging"`
	// Queue is the default queue this invocation operates on. Subcommands
	// that take a [name] argument use that name instead when it is given.
	Queue QueueConfig `yaml:"queue"`
}

// QueueConfig describes a named shared-memory queue.
type QueueConfig struct {
	// Name is the shared-memory object name under /dev/shm.
	Name string `yaml:"name"`
	// Size is the total size of the storage region, including the
	// 256-byte header.
	Size datasize.ByteSize `yaml:"size"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.Config{Level: zapcore.InfoLevel},
		Queue: QueueConfig{
			Name: "spscq-default",
			Size: 1 * datasize.MB,
		},
	}
}

// LoadConfig loads configuration from path, falling back to defaults if
// path is empty.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to deserialize config: %w", err)
	}

	return cfg, nil
}

// UnmarshalYAML serves as a proxy for validation: it decodes into the
// private config type (avoiding infinite recursion through this very
// method) and then validates the result.
func (m *Config) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode((*config)(m)); err != nil {
		return err
	}
	return m.Validate()
}

// Validate checks that the configuration is usable.
func (m *Config) Validate() error {
	if m.Queue.Name == "" {
		return fmt.Errorf("queue.name must be set")
	}
	if m.Queue.Size < 512 {
		return fmt.Errorf("queue.size must be at least 512 bytes")
	}
	return nil
}
