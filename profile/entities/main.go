// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/edwinsyarief/kura"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	count := 50
	iters := 10000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		n := kura.NewNexus(numEntities)
		query := kura.NewQuery2[comp1, comp2](n)
		builder := kura.NewBuilder[comp1](n)

		for range iters {
			for _, e := range builder.NewEntities(numEntities, comp1{V: 1}) {
				_, _ = kura.Add(n, e, comp2{V: 1, W: 1})
			}
			entities := make([]kura.Entity, 0, numEntities)
			query.Reset()
			for query.Next() {
				entities = append(entities, query.Entity())
				c1, c2 := query.Get()
				c1.V += c2.V
				c1.W += c2.W
			}
			_ = n.DestroyEntities(entities)
		}
	}
}
