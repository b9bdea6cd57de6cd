package kura

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(`
initial_capacity: 4096
log:
  level: debug
  encoding: console
snapshot:
  generator: game
  origin: level-1
`))
	require.NoError(t, err)
	require.Equal(t, 4096, c.InitialCapacity)
	require.Equal(t, LogConfig{Level: "debug", Encoding: "console"}, c.Log)
	require.Equal(t, SnapshotConfig{Generator: "game", Origin: "level-1", Dir: ".", MaxEntities: DefaultMaxDecodeEntities}, c.Snapshot)
}

func TestParseConfigDefaults(t *testing.T) {
	c, err := ParseConfig(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), c)
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "capacity: 3"},
		{"negative capacity", "initial_capacity: -1"},
		{"bad level", "log: {level: loud}"},
		{"bad encoding", "log: {encoding: xml}"},
		{"empty dir", "snapshot: {dir: ''}"},
		{"zero max entities", "snapshot: {max_entities: 0}"},
		{"max entities over cap", "snapshot: {max_entities: 16777217}"},
		{"malformed", "log: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kura.yaml")
	require.NoError(t, os.WriteFile(path, []byte("initial_capacity: 8\nsnapshot:\n  origin: test\n"), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 8, c.InitialCapacity)

	logger, err := c.Logger()
	require.NoError(t, err)
	n := c.NewNexus(logger)
	require.Same(t, logger, n.Logger())

	codec := c.NewCodec(newTestRegistry(), logger)
	data, err := codec.Encode(n, nil)
	require.NoError(t, err)
	h, err := ReadHeader(data)
	require.NoError(t, err)
	require.Equal(t, DefaultGenerator, h.Generator)
	require.Equal(t, "test", h.Origin)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, l)

	l, err = NewLogger(LogConfig{Level: "debug", Encoding: "console", Development: true})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(-1))

	_, err = NewLogger(LogConfig{Level: "nope"})
	require.Error(t, err)
}
