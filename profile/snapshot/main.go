// Profiling:
// go build ./profile/snapshot
// go tool pprof -http=":8000" -nodefraction=0.001 ./snapshot mem.pprof
//
// Each goroutine owns one Nexus and exchanges state with the others only
// through snapshot files.

package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edwinsyarief/kura"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type stats struct {
	HP, Level int64
}

func (stats) StableID() kura.StableID { return kura.StableIDOf("profile.stats") }

func (s stats) MarshalBinary() ([]byte, error) {
	b := binary.AppendVarint(nil, s.HP)
	return binary.AppendVarint(b, s.Level), nil
}

func (s *stats) UnmarshalBinary(b []byte) error {
	hp, n := binary.Varint(b)
	if n <= 0 {
		return errors.New("stats: bad hp")
	}
	level, m := binary.Varint(b[n:])
	if m <= 0 || n+m != len(b) {
		return errors.New("stats: bad level")
	}
	s.HP, s.Level = hp, level
	return nil
}

// velocity is never persisted.
type velocity struct{ X, Y float64 }

func main() {
	worlds := 8
	rounds := 20
	entities := 20000

	logger, err := kura.NewLogger(kura.LogConfig{Level: "info"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	dir, err := os.MkdirTemp("", "kura-snapshot-*")
	if err != nil {
		logger.Fatal("temp dir", zap.Error(err))
	}
	defer os.RemoveAll(dir)

	reg := kura.NewRegistry(kura.WithRegistryLogger(logger))
	if err := kura.RegisterStorable[stats](reg); err != nil {
		logger.Fatal("register", zap.Error(err))
	}
	reg.Freeze()
	codec := kura.NewCodec(reg, kura.WithGenerator("profile"), kura.WithCodecLogger(logger))

	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	g, ctx := errgroup.WithContext(context.Background())
	for w := range worlds {
		g.Go(func() error {
			return run(ctx, codec, filepath.Join(dir, fmt.Sprintf("world-%d%s", w, kura.SnapshotExt)), rounds, entities)
		})
	}
	err = g.Wait()
	p.Stop()
	if err != nil {
		logger.Fatal("snapshot profile failed", zap.Error(err))
	}
	logger.Info("snapshot profile done", zap.Int("worlds", worlds), zap.Int("rounds", rounds))
}

func run(ctx context.Context, codec *kura.Codec, path string, rounds, numEntities int) error {
	n := kura.NewNexus(numEntities)
	ents := kura.NewBuilder[stats](n).NewEntities(numEntities, stats{HP: 100, Level: 1})
	for _, e := range ents {
		_, _ = kura.Add(n, e, velocity{X: 1})
	}

	for r := range rounds {
		if err := codec.EncodeFile(ctx, n, path, ents); err != nil {
			return err
		}
		n = kura.NewNexus(numEntities)
		var err error
		ents, err = codec.DecodeFile(ctx, n, path)
		if err != nil {
			return err
		}
		if len(ents) != numEntities {
			return fmt.Errorf("round %d: decoded %d entities, want %d", r, len(ents), numEntities)
		}
		q := kura.NewQuery[stats](n)
		for q.Next() {
			q.Get().Level++
		}
	}
	return nil
}
