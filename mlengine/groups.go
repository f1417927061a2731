package mlengine

import (
	"sort"

	"github.com/bizlens/analytics_backend/utils"
)

// liftGroups accumulates lift samples per key, remembering first-seen order
// so equal averages sort deterministically.
type liftGroups struct {
	order []string
	lifts map[string][]float64
}

func newLiftGroups() *liftGroups {
	return &liftGroups{lifts: make(map[string][]float64)}
}

func (g *liftGroups) add(key string, lift float64) {
	if _, ok := g.lifts[key]; !ok {
		g.order = append(g.order, key)
	}
	g.lifts[key] = append(g.lifts[key], lift)
}

// entries returns per-key averages sorted by average lift, best first.
func (g *liftGroups) entries() []PerformanceEntry {
	out := make([]PerformanceEntry, 0, len(g.order))
	for _, key := range g.order {
		lifts := g.lifts[key]
		var sum float64
		for _, l := range lifts {
			sum += l
		}
		out = append(out, PerformanceEntry{
			Name:      key,
			AvgLift:   utils.RoundN(sum/float64(len(lifts)), 1),
			PostCount: len(lifts),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgLift > out[j].AvgLift
	})
	return out
}
