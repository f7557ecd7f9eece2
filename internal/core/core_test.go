package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sprite-ai/batchrev/internal/backend"
	"github.com/sprite-ai/batchrev/internal/model"
	"github.com/sprite-ai/batchrev/internal/queue"
)

func testItem(id string, num int) model.ReviewItem {
	return model.ReviewItem{
		RestID:  id,
		VcsID:   "v" + id,
		Number:  num,
		Subject: "change " + id,
	}
}

func newTestCore(t *testing.T, ids ...string) (*Core, *backend.Fake) {
	t.Helper()
	f := backend.NewFake()
	for i, id := range ids {
		f.Assigned = append(f.Assigned, testItem(id, i+1))
		f.Revisions[id] = "rev-" + id
	}
	c := New(f, Options{AutomationPort: 0})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return c, f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func batchIDs(c *Core) []string {
	return restIDs(c.Snapshot().Batch)
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestRefreshPopulatesIncoming(t *testing.T) {
	c, _ := newTestCore(t, "a", "b", "c")

	snap := c.Snapshot()
	if len(snap.Incoming) != 3 || len(snap.Batch) != 0 {
		t.Fatalf("expected 3 incoming / 0 batch, got %d / %d", len(snap.Incoming), len(snap.Batch))
	}
	if snap.ServerState != model.ServerStopped {
		t.Errorf("expected server stopped, got %s", snap.ServerState)
	}
}

func TestAddToBatchSortsBySeverity(t *testing.T) {
	c, _ := newTestCore(t, "a", "b", "c")

	c.AddToBatch([]string{"a", "b", "c"}, map[string]model.Severity{
		"a": model.SeverityLow,
		"b": model.SeverityCritical,
		"c": model.SeverityHigh,
	})

	// The staging itself is immediate; the severity sort lands async.
	if len(batchIDs(c)) != 3 {
		t.Fatalf("expected items staged immediately, got %v", batchIDs(c))
	}
	waitFor(t, "severity order", func() bool {
		return equalIDs(batchIDs(c), []string{"b", "c", "a"})
	})
}

func TestChainGroupedAndChainSelect(t *testing.T) {
	c, f := newTestCore(t, "a", "b")
	// b is the base, a its dependent; the server reports tip first.
	tipFirst := []backend.RelatedChange{
		{Commit: "ca", VcsID: "va", Number: 1, Status: "NEW"},
		{Commit: "cb", VcsID: "vb", Number: 2, Status: "NEW"},
	}
	f.Chains["a"] = tipFirst
	f.Chains["b"] = tipFirst

	c.AddToBatch([]string{"a", "b"}, nil)
	waitFor(t, "base-first order", func() bool {
		return equalIDs(batchIDs(c), []string{"b", "a"})
	})

	c.SelectChain(queue.Batch, "a")
	if got := c.SelectedIDs(queue.Batch); !equalIDs(got, []string{"b", "a"}) {
		t.Errorf("expected whole chain selected, got %v", got)
	}

	// A second chain-click on any member deselects the group.
	c.SelectChain(queue.Batch, "b")
	if got := c.SelectedIDs(queue.Batch); len(got) != 0 {
		t.Errorf("expected chain deselected, got %v", got)
	}
}

func TestSelectChainOnStandaloneToggles(t *testing.T) {
	c, _ := newTestCore(t, "a", "b")
	c.AddToBatch([]string{"a", "b"}, nil)

	c.SelectChain(queue.Batch, "a")
	if got := c.SelectedIDs(queue.Batch); !equalIDs(got, []string{"a"}) {
		t.Errorf("expected plain toggle, got %v", got)
	}
}

func TestVoteClearsBatch(t *testing.T) {
	c, f := newTestCore(t, "a", "b", "c")
	c.AddToBatch([]string{"a", "b"}, nil)

	report := c.Vote(context.Background(), backend.VoteRequest{
		Labels: map[string]int{"Code-Review": -1},
	})
	if report.SuccessCount != 2 || report.FailureCount != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(f.Votes) != 2 || f.Votes[0].RestID != "a" || f.Votes[0].RevisionID != "rev-a" {
		t.Errorf("unexpected votes %+v", f.Votes)
	}

	snap := c.Snapshot()
	if len(snap.Batch) != 0 || len(snap.Incoming) != 3 {
		t.Errorf("expected batch cleared back to incoming, got %d / %d", len(snap.Batch), len(snap.Incoming))
	}
}

func TestVoteFailureStillClears(t *testing.T) {
	c, f := newTestCore(t, "a", "b")
	f.FailVote["b"] = true
	c.AddToBatch([]string{"a", "b"}, nil)

	report := c.Vote(context.Background(), backend.VoteRequest{
		Labels: map[string]int{"Code-Review": 1},
	})
	if report.SuccessCount != 1 || report.FailureCount != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(c.Snapshot().Batch) != 0 {
		t.Error("expected batch cleared even with a failed vote")
	}
}

func TestApproveAllKeepsBatchAndFlags(t *testing.T) {
	c, f := newTestCore(t, "a", "b")
	f.FailVote["b"] = true
	c.AddToBatch([]string{"a", "b"}, nil)

	report := c.ApproveAll(context.Background())
	if report.SuccessCount != 1 || report.FailureCount != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	snap := c.Snapshot()
	if len(snap.Batch) != 2 {
		t.Fatalf("expected batch untouched, got %v", restIDs(snap.Batch))
	}
	for _, it := range snap.Batch {
		want := it.RestID == "a"
		if it.HasApprovingVote != want {
			t.Errorf("item %s: approving flag %v, want %v", it.RestID, it.HasApprovingVote, want)
		}
	}
}

func TestSubmitAllDropsOnlySucceeded(t *testing.T) {
	c, f := newTestCore(t, "a", "b", "c")
	f.Submittable["b"] = backend.Submittability{Submittable: false, Reason: "needs Verified"}
	f.FailSubmit["c"] = true
	c.AddToBatch([]string{"a", "b", "c"}, nil)

	report := c.SubmitAll(context.Background())
	if report.SuccessCount != 1 || report.SkippedCount != 1 || report.FailureCount != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	snap := c.Snapshot()
	if !equalIDs(restIDs(snap.Batch), []string{"b", "c"}) {
		t.Errorf("expected failures and skips to stay staged, got %v", restIDs(snap.Batch))
	}
	for _, it := range snap.Incoming {
		if it.RestID == "a" {
			t.Error("submitted change must not return to incoming")
		}
	}
}

func TestSubmitAllWalksChainBaseFirst(t *testing.T) {
	c, f := newTestCore(t, "a", "b")
	tipFirst := []backend.RelatedChange{
		{Commit: "ca", VcsID: "va", Number: 1, Status: "NEW"},
		{Commit: "cb", VcsID: "vb", Number: 2, Status: "NEW"},
	}
	f.Chains["a"] = tipFirst
	f.Chains["b"] = tipFirst

	c.AddToBatch([]string{"a", "b"}, nil)
	waitFor(t, "base-first order", func() bool {
		return equalIDs(batchIDs(c), []string{"b", "a"})
	})

	// Scramble the queue so only the submission-time re-sort can restore
	// the canonical walk.
	c.Reorder([]string{"a"}, queue.Batch, 0)
	if !equalIDs(batchIDs(c), []string{"a", "b"}) {
		t.Fatalf("expected scrambled batch, got %v", batchIDs(c))
	}

	report := c.SubmitAll(context.Background())
	if report.SuccessCount != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(f.Submits) != 2 || f.Submits[0] != "b" || f.Submits[1] != "a" {
		t.Errorf("expected base submitted first, got %v", f.Submits)
	}
}

func TestSelectionDroppedWhenItemLeavesList(t *testing.T) {
	c, _ := newTestCore(t, "a", "b")
	c.AddToBatch([]string{"a", "b"}, nil)

	c.SelectToggle(queue.Batch, "a")
	if got := c.SelectedIDs(queue.Batch); !equalIDs(got, []string{"a"}) {
		t.Fatalf("expected a selected, got %v", got)
	}

	c.RemoveFromBatch([]string{"a"}, -1)
	if got := c.SelectedIDs(queue.Batch); len(got) != 0 {
		t.Errorf("expected selection dropped with the item, got %v", got)
	}
	if got := c.SelectedIDs(queue.Incoming); len(got) != 0 {
		t.Errorf("selection must not follow the item across lists, got %v", got)
	}
}

func TestObserverReceivesPushes(t *testing.T) {
	c, _ := newTestCore(t, "a")
	snaps := make(chan model.Snapshot, 16)
	c.OnSnapshot(func(s model.Snapshot) {
		select {
		case snaps <- s:
		default:
		}
	})

	c.AddToBatch([]string{"a"}, nil)

	waitFor(t, "observer push with staged item", func() bool {
		for {
			select {
			case s := <-snaps:
				if len(s.Batch) == 1 && s.Batch[0].RestID == "a" {
					return true
				}
			default:
				return false
			}
		}
	})
}

func TestAutomationRoundTrip(t *testing.T) {
	c, _ := newTestCore(t, "a", "b")

	port, err := c.StartServer()
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	defer c.StopServer()

	snap := c.Snapshot()
	if snap.ServerState != model.ServerRunning || snap.ServerPort != port {
		t.Fatalf("expected running snapshot with port %d, got %s/%d", port, snap.ServerState, snap.ServerPort)
	}

	body := `{"changeIDs":["a"],"scores":{"a":"HIGH"}}`
	resp, err := http.Post(
		fmt.Sprintf("http://127.0.0.1:%d/batch", port),
		"application/json",
		strings.NewReader(body),
	)
	if err != nil {
		t.Fatalf("POST /batch: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /batch status %d", resp.StatusCode)
	}

	waitFor(t, "staged via automation", func() bool {
		b := c.Snapshot().Batch
		return len(b) == 1 && b[0].RestID == "a" && b[0].Severity == model.SeverityHigh
	})

	if err := c.StopServer(); err != nil {
		t.Fatalf("StopServer: %v", err)
	}
	if s := c.Snapshot(); s.ServerState != model.ServerStopped {
		t.Errorf("expected stopped after StopServer, got %s", s.ServerState)
	}
}

func TestPreviewParsesAndLoadsFiles(t *testing.T) {
	c, f := newTestCore(t, "a")
	f.Patches["a"] = "diff --git a/x.go b/x.go\n--- a/x.go\n+++ b/x.go\n@@ -1,1 +1,2 @@\n context\n+added\n"

	p, err := c.Preview(context.Background(), "a")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(p.Files) != 1 || p.Files[0].Info.Path != "x.go" {
		t.Fatalf("unexpected preview %+v", p)
	}

	snap := c.Snapshot()
	if !snap.Incoming[0].FilesLoaded || len(snap.Incoming[0].Files) != 1 {
		t.Errorf("expected file list populated from preview, got %+v", snap.Incoming[0])
	}
}

func TestLoadFiles(t *testing.T) {
	c, f := newTestCore(t, "a")
	f.Files["a"] = []model.FileInfo{{Path: "main.go", Additions: 3}}

	c.LoadFiles(context.Background(), "a")
	snap := c.Snapshot()
	if !snap.Incoming[0].FilesLoaded || snap.Incoming[0].Files[0].Path != "main.go" {
		t.Errorf("expected files loaded, got %+v", snap.Incoming[0])
	}

	// A second call is a no-op; the loaded flag short-circuits the fetch.
	f.Files["a"] = []model.FileInfo{{Path: "other.go"}}
	c.LoadFiles(context.Background(), "a")
	if got := c.Snapshot().Incoming[0].Files[0].Path; got != "main.go" {
		t.Errorf("expected cached file list kept, got %q", got)
	}
}
