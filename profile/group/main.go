// Profiling:
// go build ./profile/group
// go tool pprof -http=":8000" -nodefraction=0.001 ./group cpu.pprof

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

type comp3 struct {
	V int64
	W int64
}

type marker struct{}

func main() {
	count := 20
	iters := 1000
	entities := 100000
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		n := kura.NewNexus(numEntities)
		query := kura.NewQuery3[comp1, comp2, comp3](n, kura.ComponentIDOf[marker](n))
		builder := kura.NewBuilder[comp1](n)
		ents := builder.NewEntities(numEntities, comp1{})
		for i, e := range ents {
			_, _ = kura.Add(n, e, comp2{V: 1})
			_, _ = kura.Add(n, e, comp3{W: 1})
			if i%4 == 0 {
				_, _ = kura.Add(n, e, marker{})
			}
		}

		for i := range iters {
			query.Reset()
			for query.Next() {
				c1, c2, c3 := query.Get()
				c1.V += c2.V
				c1.W += c3.W
			}
			// churn membership so the group is maintained incrementally
			e := ents[i%len(ents)]
			if kura.Has[marker](n, e) {
				_ = kura.Remove[marker](n, e)
			} else {
				_, _ = kura.Add(n, e, marker{})
			}
		}
	}
}
