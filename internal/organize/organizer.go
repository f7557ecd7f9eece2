// Package organize computes the canonical ordering of the batch queue.
package organize

import (
	"context"
	"sort"
	"sync"

	"github.com/sprite-ai/batchrev/internal/chain"
	"github.com/sprite-ai/batchrev/internal/model"
)

// Organizer sorts batch items so chains stay together in submission order
// and attention goes to the worst severities first.
type Organizer struct {
	resolver *chain.Resolver
}

// New creates an organizer over the given resolver.
func New(r *chain.Resolver) *Organizer {
	return &Organizer{resolver: r}
}

type member struct {
	item model.ReviewItem
	info model.ChainInfo
}

// Order resolves every item's chain info (concurrently, cache-backed) and
// returns the desired restId order. Standalone items and chain groups are
// ranked together by severity, a group counting as its worst member, with
// standalone items winning ties; each group flattens base first.
//
// The result is deterministic for a given input; callers compare it against
// the live queue and apply only on change.
func (o *Organizer) Order(ctx context.Context, items []model.ReviewItem) []string {
	members := make([]member, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item model.ReviewItem) {
			defer wg.Done()
			members[i] = member{
				item: item,
				info: o.resolver.ChainInfo(ctx, item),
			}
		}(i, item)
	}
	wg.Wait()

	// A unit is one standalone item or one whole chain group.
	type unit struct {
		members  []member
		severity int
		grouped  bool
	}

	var units []unit
	groupIdx := map[string]int{}
	for _, m := range members {
		if !m.info.InChain {
			units = append(units, unit{
				members:  []member{m},
				severity: m.item.Severity.Priority(),
			})
			continue
		}
		i, ok := groupIdx[m.info.ChainBaseID]
		if !ok {
			i = len(units)
			groupIdx[m.info.ChainBaseID] = i
			units = append(units, unit{grouped: true})
		}
		u := &units[i]
		u.members = append(u.members, m)
		// A group counts as its worst member: one CRITICAL change pulls
		// the whole chain forward.
		if p := m.item.Severity.Priority(); p > u.severity {
			u.severity = p
		}
	}

	// Within a group, base (position 1) first.
	for i := range units {
		if units[i].grouped {
			g := units[i].members
			sort.SliceStable(g, func(a, b int) bool {
				return g[a].info.Position < g[b].info.Position
			})
		}
	}

	sort.SliceStable(units, func(a, b int) bool {
		if units[a].severity != units[b].severity {
			return units[a].severity > units[b].severity
		}
		return !units[a].grouped && units[b].grouped
	})

	order := make([]string, 0, len(items))
	for _, u := range units {
		for _, m := range u.members {
			order = append(order, m.item.RestID)
		}
	}
	return order
}
