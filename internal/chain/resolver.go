// Package chain resolves a change's position in its relation chain.
package chain

import (
	"context"
	"log"
	"sync"

	"github.com/sprite-ai/batchrev/internal/backend"
	"github.com/sprite-ai/batchrev/internal/model"
)

// standalone is what every failure path degrades to: the item sorts as an
// unchained change rather than blocking the whole batch.
var standalone = model.ChainInfo{InChain: false}

// Resolver computes ChainInfo for changes, caching results by vcsId for the
// life of the process. Chain membership is treated as stable in-session: if
// a new dependent is pushed onto a chain after a member was resolved, the
// cached position and length stay stale until the next session.
type Resolver struct {
	backend backend.ReviewBackend

	mu    sync.Mutex
	cache map[string]model.ChainInfo
}

// NewResolver creates a resolver over the given backend.
func NewResolver(b backend.ReviewBackend) *Resolver {
	return &Resolver{
		backend: b,
		cache:   map[string]model.ChainInfo{},
	}
}

// ChainInfo resolves the chain placement of a change. Safe for concurrent
// use; concurrent lookups of distinct changes proceed in parallel.
func (r *Resolver) ChainInfo(ctx context.Context, item model.ReviewItem) model.ChainInfo {
	r.mu.Lock()
	if info, ok := r.cache[item.VcsID]; ok {
		r.mu.Unlock()
		return info
	}
	r.mu.Unlock()

	info, ok := r.resolve(ctx, item)
	if !ok {
		// Lookup failed; degrade to standalone without caching so a
		// later re-sort can retry.
		return standalone
	}

	r.mu.Lock()
	r.cache[item.VcsID] = info
	r.mu.Unlock()
	return info
}

// Cached returns the cached chain info without touching the network.
func (r *Resolver) Cached(vcsID string) (model.ChainInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.cache[vcsID]
	return info, ok
}

func (r *Resolver) resolve(ctx context.Context, item model.ReviewItem) (model.ChainInfo, bool) {
	rel, err := r.backend.RelatedChain(ctx, item.RestID)
	if err != nil {
		log.Printf("chain: related lookup for %s failed, treating as standalone: %v", item.RestID, err)
		return standalone, false
	}
	if len(rel) <= 1 {
		return standalone, true
	}

	// The server reports tip first; walk base-up, dropping merged and
	// abandoned members so they neither count nor block. Members that
	// arrive without identifiers or status get a follow-up lookup.
	active := make([]backend.RelatedChange, 0, len(rel))
	for _, rc := range rel {
		if rc.VcsID == "" || rc.Status == "" {
			ref, err := r.backend.LookupChange(ctx, rc.Commit)
			if err != nil {
				log.Printf("chain: member lookup for %s failed, treating %s as standalone: %v", rc.Commit, item.RestID, err)
				return standalone, false
			}
			rc.VcsID = ref.VcsID
			rc.Number = ref.Number
			rc.Status = ref.Status
		}
		if rc.Status == "MERGED" || rc.Status == "ABANDONED" {
			continue
		}
		active = append(active, rc)
	}

	if len(active) <= 1 {
		return standalone, true
	}

	// Position 1 is the base, the last entry in tip-first order.
	base := active[len(active)-1]
	position := 0
	for i := len(active) - 1; i >= 0; i-- {
		if active[i].VcsID == item.VcsID {
			position = len(active) - i
			break
		}
	}
	if position == 0 {
		// The change itself was filtered out or missing from its own
		// chain; nothing sensible to group it with.
		return standalone, true
	}

	return model.ChainInfo{
		InChain:         true,
		Position:        position,
		ChainLength:     len(active),
		ChainBaseID:     base.VcsID,
		ChainBaseNumber: base.Number,
	}, true
}
