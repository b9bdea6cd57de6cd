package kura

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config describes how a process sets up its nexus, logging and snapshots.
//
// Example:
//
//	initial_capacity: 4096
//	log:
//	  level: debug
//	  encoding: console
//	snapshot:
//	  generator: my-game
//	  origin: level-1
//	  dir: ./saves
//	  max_entities: 100000
type Config struct {
	Log             LogConfig      `yaml:"log"`
	Snapshot        SnapshotConfig `yaml:"snapshot"`
	InitialCapacity int            `yaml:"initial_capacity"`
}

// SnapshotConfig holds snapshot header fields and the snapshot directory.
type SnapshotConfig struct {
	Generator   string `yaml:"generator"`
	Origin      string `yaml:"origin"`
	Dir         string `yaml:"dir"`
	MaxEntities int    `yaml:"max_entities"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		InitialCapacity: 1024,
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Snapshot: SnapshotConfig{
			Generator:   DefaultGenerator,
			Dir:         ".",
			MaxEntities: DefaultMaxDecodeEntities,
		},
	}
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	c, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return c, nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.InitialCapacity < 0 {
		return fmt.Errorf("initial_capacity: must not be negative, got %d", c.InitialCapacity)
	}
	if c.InitialCapacity > MaxSnapshotEntities {
		return fmt.Errorf("initial_capacity: %d exceeds %d", c.InitialCapacity, MaxSnapshotEntities)
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	if c.Snapshot.MaxEntities < 1 || c.Snapshot.MaxEntities > MaxSnapshotEntities {
		return fmt.Errorf("snapshot.max_entities: must be in 1..%d, got %d", MaxSnapshotEntities, c.Snapshot.MaxEntities)
	}
	if c.Snapshot.Dir == "" {
		return errors.New("snapshot.dir: must not be empty")
	}
	return nil
}

// Logger builds the configured logger.
func (c Config) Logger() (*zap.Logger, error) {
	return NewLogger(c.Log)
}

// NewNexus creates a nexus sized by the configuration. opts are applied
// after the configured ones.
func (c Config) NewNexus(logger *zap.Logger, opts ...Option) *Nexus {
	return NewNexus(c.InitialCapacity, append([]Option{WithLogger(logger)}, opts...)...)
}

// NewCodec creates a codec writing the configured header fields.
func (c Config) NewCodec(reg *Registry, logger *zap.Logger, opts ...CodecOption) *Codec {
	base := []CodecOption{
		WithGenerator(c.Snapshot.Generator),
		WithOrigin(c.Snapshot.Origin),
		WithMaxEntities(c.Snapshot.MaxEntities),
		WithCodecLogger(logger),
	}
	return NewCodec(reg, append(base, opts...)...)
}
