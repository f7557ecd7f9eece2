// Package queue implements the two ordered review queues and their
// mutation operations.
package queue

import (
	"sync"

	"github.com/sprite-ai/batchrev/internal/model"
)

// Name identifies one of the two queues.
type Name string

const (
	Incoming Name = "incoming"
	Batch    Name = "batch"
)

// Store owns the Incoming and Batch queues. Every mutation preserves two
// invariants: a restId appears in at most one queue, and never twice within
// a queue. Mutations fire the change callback; reads return copies.
type Store struct {
	mu       sync.Mutex
	incoming []model.ReviewItem
	batch    []model.ReviewItem
	onChange func()
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// OnChange registers the single state-changed callback. It is invoked after
// every mutation, outside the store lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// IncomingItems returns a copy of the incoming queue.
func (s *Store) IncomingItems() []model.ReviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyItems(s.incoming)
}

// BatchItems returns a copy of the batch queue.
func (s *Store) BatchItems() []model.ReviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyItems(s.batch)
}

func copyItems(items []model.ReviewItem) []model.ReviewItem {
	out := make([]model.ReviewItem, len(items))
	copy(out, items)
	return out
}

func indexOf(items []model.ReviewItem, id string) int {
	for i, it := range items {
		if it.RestID == id {
			return i
		}
	}
	return -1
}

// AddToBatch moves the named items from Incoming to Batch. Unknown ids and
// ids already in Batch are ignored. Supplied severities are applied to the
// moved items. insertAt places the moved block at that index in Batch; pass
// a negative value to append. Returns whether Batch was empty before the
// call, the trigger for an initial re-sort.
func (s *Store) AddToBatch(ids []string, severities map[string]model.Severity, insertAt int) (wasEmpty bool) {
	s.mu.Lock()
	wasEmpty = len(s.batch) == 0

	var moved []model.ReviewItem
	for _, id := range ids {
		if indexOf(s.batch, id) >= 0 || indexOf(moved, id) >= 0 {
			continue
		}
		i := indexOf(s.incoming, id)
		if i < 0 {
			continue
		}
		item := s.incoming[i]
		if sev, ok := severities[id]; ok {
			item.Severity = sev
		}
		s.incoming = append(s.incoming[:i], s.incoming[i+1:]...)
		moved = append(moved, item)
	}

	s.batch = spliceIn(s.batch, moved, insertAt)
	changed := len(moved) > 0
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return wasEmpty
}

// RemoveFromBatch moves the named items back to Incoming, clearing their
// batch-only badges (severity, submittable flag). insertAt places them at
// that index in Incoming; negative appends.
func (s *Store) RemoveFromBatch(ids []string, insertAt int) {
	s.mu.Lock()
	var moved []model.ReviewItem
	for _, id := range ids {
		if indexOf(s.incoming, id) >= 0 || indexOf(moved, id) >= 0 {
			continue
		}
		i := indexOf(s.batch, id)
		if i < 0 {
			continue
		}
		item := s.batch[i]
		item.Severity = model.SeverityNone
		item.Submittable = false
		s.batch = append(s.batch[:i], s.batch[i+1:]...)
		moved = append(moved, item)
	}

	s.incoming = spliceIn(s.incoming, moved, insertAt)
	changed := len(moved) > 0
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// ClearBatch moves every batch item back to Incoming, badges cleared.
func (s *Store) ClearBatch() {
	s.mu.Lock()
	changed := len(s.batch) > 0
	for _, item := range s.batch {
		if indexOf(s.incoming, item.RestID) >= 0 {
			continue
		}
		item.Severity = model.SeverityNone
		item.Submittable = false
		s.incoming = append(s.incoming, item)
	}
	s.batch = nil
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// DropFromBatch removes the named items from Batch without returning them
// to Incoming. Used after successful submission, when the change has merged
// and belongs to neither queue.
func (s *Store) DropFromBatch(ids []string) {
	s.mu.Lock()
	var changed bool
	for _, id := range ids {
		if i := indexOf(s.batch, id); i >= 0 {
			s.batch = append(s.batch[:i], s.batch[i+1:]...)
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Reorder moves the named items within a single queue so the block lands at
// dropIndex, preserving the relative order of both the moving and the
// remaining items. dropIndex is interpreted against the pre-move queue; the
// insertion point is adjusted to skip items that are themselves moving.
func (s *Store) Reorder(ids []string, target Name, dropIndex int) {
	s.mu.Lock()
	items := s.queueFor(target)

	moving := make(map[string]bool, len(ids))
	for _, id := range ids {
		moving[id] = true
	}

	var movingSeq, remaining []model.ReviewItem
	insert := 0
	for i, item := range items {
		if moving[item.RestID] {
			movingSeq = append(movingSeq, item)
			continue
		}
		remaining = append(remaining, item)
		if i < dropIndex {
			insert = len(remaining)
		}
	}

	if len(movingSeq) == 0 {
		s.mu.Unlock()
		return
	}

	result := make([]model.ReviewItem, 0, len(items))
	result = append(result, remaining[:insert]...)
	result = append(result, movingSeq...)
	result = append(result, remaining[insert:]...)
	s.setQueue(target, result)
	s.mu.Unlock()

	s.notify()
}

// ReplaceIncoming swaps in a fresh incoming fetch. Items already staged in
// Batch are excluded so no restId lands in both queues.
func (s *Store) ReplaceIncoming(items []model.ReviewItem) {
	s.mu.Lock()
	fresh := make([]model.ReviewItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.RestID] || indexOf(s.batch, item.RestID) >= 0 {
			continue
		}
		seen[item.RestID] = true
		fresh = append(fresh, item)
	}
	s.incoming = fresh
	s.mu.Unlock()

	s.notify()
}

// ApplyBatchOrder rearranges Batch to match the given restId order. Ids not
// present in Batch are skipped; Batch items missing from the order keep
// their relative position at the end. Returns true when the order actually
// changed, in which case observers were notified. Stale organizer results
// (computed against an outdated queue) fall out as no-ops here.
func (s *Store) ApplyBatchOrder(order []string) bool {
	s.mu.Lock()
	result := make([]model.ReviewItem, 0, len(s.batch))
	taken := make(map[string]bool, len(s.batch))
	for _, id := range order {
		if taken[id] {
			continue
		}
		if i := indexOf(s.batch, id); i >= 0 {
			result = append(result, s.batch[i])
			taken[id] = true
		}
	}
	for _, item := range s.batch {
		if !taken[item.RestID] {
			result = append(result, item)
		}
	}

	changed := false
	for i := range result {
		if result[i].RestID != s.batch[i].RestID {
			changed = true
			break
		}
	}
	if changed {
		s.batch = result
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return changed
}

// UpdateItem applies fn to the item with the given restId, in whichever
// queue it lives. Used for lazy file loads and vote-flag updates.
func (s *Store) UpdateItem(id string, fn func(*model.ReviewItem)) bool {
	s.mu.Lock()
	var found bool
	if i := indexOf(s.batch, id); i >= 0 {
		fn(&s.batch[i])
		found = true
	} else if i := indexOf(s.incoming, id); i >= 0 {
		fn(&s.incoming[i])
		found = true
	}
	s.mu.Unlock()

	if found {
		s.notify()
	}
	return found
}

func (s *Store) queueFor(n Name) []model.ReviewItem {
	if n == Batch {
		return s.batch
	}
	return s.incoming
}

func (s *Store) setQueue(n Name, items []model.ReviewItem) {
	if n == Batch {
		s.batch = items
	} else {
		s.incoming = items
	}
}

// spliceIn inserts block at index at (append when negative or past the end).
func spliceIn(items, block []model.ReviewItem, at int) []model.ReviewItem {
	if len(block) == 0 {
		return items
	}
	if at < 0 || at > len(items) {
		return append(items, block...)
	}
	out := make([]model.ReviewItem, 0, len(items)+len(block))
	out = append(out, items[:at]...)
	out = append(out, block...)
	out = append(out, items[at:]...)
	return out
}
