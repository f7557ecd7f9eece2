package queue

import (
	"testing"

	"github.com/sprite-ai/batchrev/internal/model"
)

func item(id string) model.ReviewItem {
	return model.ReviewItem{RestID: id, VcsID: "I" + id, Subject: "change " + id}
}

func seedStore(ids ...string) *Store {
	s := NewStore()
	items := make([]model.ReviewItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, item(id))
	}
	s.ReplaceIncoming(items)
	return s
}

func restIDs(items []model.ReviewItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.RestID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddToBatchMovesAndAppliesSeverity(t *testing.T) {
	s := seedStore("A", "B", "C")

	wasEmpty := s.AddToBatch([]string{"A", "B"}, map[string]model.Severity{"A": model.SeverityCritical}, -1)
	if !wasEmpty {
		t.Error("expected wasEmpty on first add")
	}

	batch := s.BatchItems()
	if !equalIDs(restIDs(batch), []string{"A", "B"}) {
		t.Fatalf("expected batch [A B], got %v", restIDs(batch))
	}
	if batch[0].Severity != model.SeverityCritical {
		t.Errorf("expected A CRITICAL, got %v", batch[0].Severity)
	}
	if batch[1].Severity != model.SeverityNone {
		t.Errorf("expected B unset, got %v", batch[1].Severity)
	}
	if !equalIDs(restIDs(s.IncomingItems()), []string{"C"}) {
		t.Errorf("expected incoming [C], got %v", restIDs(s.IncomingItems()))
	}
}

func TestAddToBatchIgnoresUnknownAndDuplicateIDs(t *testing.T) {
	s := seedStore("A", "B")
	s.AddToBatch([]string{"A"}, nil, -1)

	// A is already staged, X does not exist; B still applies.
	wasEmpty := s.AddToBatch([]string{"A", "X", "B"}, nil, -1)
	if wasEmpty {
		t.Error("expected wasEmpty false on second add")
	}
	if !equalIDs(restIDs(s.BatchItems()), []string{"A", "B"}) {
		t.Errorf("expected batch [A B], got %v", restIDs(s.BatchItems()))
	}
	if len(s.IncomingItems()) != 0 {
		t.Errorf("expected empty incoming, got %v", restIDs(s.IncomingItems()))
	}
}

func TestDedupInvariantAcrossOperations(t *testing.T) {
	s := seedStore("A", "B", "C", "D")

	ops := []func(){
		func() { s.AddToBatch([]string{"A", "B"}, nil, -1) },
		func() { s.RemoveFromBatch([]string{"A"}, 0) },
		func() { s.AddToBatch([]string{"A", "C"}, nil, 1) },
		func() { s.ClearBatch() },
		func() { s.AddToBatch([]string{"D"}, nil, -1) },
	}

	check := func() {
		seen := map[string]string{}
		for _, it := range s.IncomingItems() {
			if prev, ok := seen[it.RestID]; ok {
				t.Fatalf("%s appears in incoming and %s", it.RestID, prev)
			}
			seen[it.RestID] = "incoming"
		}
		for _, it := range s.BatchItems() {
			if prev, ok := seen[it.RestID]; ok {
				t.Fatalf("%s appears in batch and %s", it.RestID, prev)
			}
			seen[it.RestID] = "batch"
		}
	}

	for _, op := range ops {
		op()
		check()
	}
}

func TestRemoveFromBatchClearsBadges(t *testing.T) {
	s := seedStore("A", "B")
	s.AddToBatch([]string{"A"}, map[string]model.Severity{"A": model.SeverityHigh}, -1)

	s.RemoveFromBatch([]string{"A"}, 0)

	incoming := s.IncomingItems()
	if !equalIDs(restIDs(incoming), []string{"A", "B"}) {
		t.Fatalf("expected incoming [A B], got %v", restIDs(incoming))
	}
	if incoming[0].Severity != model.SeverityNone {
		t.Errorf("expected severity cleared, got %v", incoming[0].Severity)
	}
}

func TestClearBatchReturnsAllToIncoming(t *testing.T) {
	s := seedStore("A", "B", "C")
	s.AddToBatch([]string{"A", "C"}, map[string]model.Severity{"C": model.SeverityLow}, -1)

	s.ClearBatch()

	if len(s.BatchItems()) != 0 {
		t.Fatalf("expected empty batch, got %v", restIDs(s.BatchItems()))
	}
	incoming := s.IncomingItems()
	if len(incoming) != 3 {
		t.Fatalf("expected 3 incoming, got %v", restIDs(incoming))
	}
	for _, it := range incoming {
		if it.Severity != model.SeverityNone {
			t.Errorf("expected %s badge cleared, got %v", it.RestID, it.Severity)
		}
	}
}

func TestReorderPreservesUnmovedRelativeOrder(t *testing.T) {
	s := seedStore("A", "B", "C", "D", "E")
	s.AddToBatch([]string{"A", "B", "C", "D", "E"}, nil, -1)

	// Move B and D to the front.
	s.Reorder([]string{"B", "D"}, Batch, 0)

	got := restIDs(s.BatchItems())
	if !equalIDs(got, []string{"B", "D", "A", "C", "E"}) {
		t.Fatalf("expected [B D A C E], got %v", got)
	}
}

func TestReorderDropIndexSkipsMovingItems(t *testing.T) {
	s := seedStore("A", "B", "C", "D")
	s.AddToBatch([]string{"A", "B", "C", "D"}, nil, -1)

	// Drop A after C: indexes 1 and 2 of the original queue precede the
	// drop point, so A lands after B and C.
	s.Reorder([]string{"A"}, Batch, 3)

	got := restIDs(s.BatchItems())
	if !equalIDs(got, []string{"B", "C", "A", "D"}) {
		t.Fatalf("expected [B C A D], got %v", got)
	}
}

func TestReplaceIncomingExcludesBatchMembers(t *testing.T) {
	s := seedStore("A", "B")
	s.AddToBatch([]string{"A"}, nil, -1)

	s.ReplaceIncoming([]model.ReviewItem{item("A"), item("B"), item("C"), item("C")})

	if !equalIDs(restIDs(s.IncomingItems()), []string{"B", "C"}) {
		t.Errorf("expected incoming [B C], got %v", restIDs(s.IncomingItems()))
	}
	if !equalIDs(restIDs(s.BatchItems()), []string{"A"}) {
		t.Errorf("expected batch [A], got %v", restIDs(s.BatchItems()))
	}
}

func TestApplyBatchOrder(t *testing.T) {
	s := seedStore("A", "B", "C")
	s.AddToBatch([]string{"A", "B", "C"}, nil, -1)

	if changed := s.ApplyBatchOrder([]string{"C", "A", "B"}); !changed {
		t.Error("expected order change")
	}
	if !equalIDs(restIDs(s.BatchItems()), []string{"C", "A", "B"}) {
		t.Fatalf("expected [C A B], got %v", restIDs(s.BatchItems()))
	}

	// Same order again is a no-op.
	if changed := s.ApplyBatchOrder([]string{"C", "A", "B"}); changed {
		t.Error("expected no change on identical order")
	}

	// Stale order referencing a removed item still places the rest.
	s.DropFromBatch([]string{"A"})
	if changed := s.ApplyBatchOrder([]string{"B", "A", "C"}); !changed {
		t.Error("expected change")
	}
	if !equalIDs(restIDs(s.BatchItems()), []string{"B", "C"}) {
		t.Fatalf("expected [B C], got %v", restIDs(s.BatchItems()))
	}
}

func TestNotifyFiresOnMutation(t *testing.T) {
	s := seedStore("A", "B")
	var calls int
	s.OnChange(func() { calls++ })

	s.AddToBatch([]string{"A"}, nil, -1)
	s.AddToBatch([]string{"X"}, nil, -1) // no-op, no notification
	s.RemoveFromBatch([]string{"A"}, -1)
	s.ClearBatch() // empty batch, no notification

	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}
}
