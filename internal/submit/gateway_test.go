package submit

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sprite-ai/batchrev/internal/backend"
	"github.com/sprite-ai/batchrev/internal/model"
)

func gwItems(ids ...string) []model.ReviewItem {
	out := make([]model.ReviewItem, 0, len(ids))
	for i, id := range ids {
		out = append(out, model.ReviewItem{RestID: id, Number: 100 + i})
	}
	return out
}

func withRevisions(f *backend.Fake, ids ...string) {
	for _, id := range ids {
		f.Revisions[id] = "rev-" + id
	}
}

func TestApplyVotePostsInOrder(t *testing.T) {
	f := backend.NewFake()
	withRevisions(f, "A", "B")
	g := NewGateway(f)

	req := backend.VoteRequest{Labels: map[string]int{"Code-Review": 1}, Message: "lgtm"}
	report := g.ApplyVote(context.Background(), gwItems("A", "B"), req)

	if report.SuccessCount != 2 || report.FailureCount != 0 {
		t.Fatalf("expected 2 successes, got %+v", report)
	}
	if len(f.Votes) != 2 || f.Votes[0].RestID != "A" || f.Votes[1].RestID != "B" {
		t.Errorf("expected votes in order [A B], got %+v", f.Votes)
	}
	if f.Votes[0].RevisionID != "rev-A" {
		t.Errorf("expected current revision fetched per item, got %q", f.Votes[0].RevisionID)
	}
}

func TestApplyVoteCollectsFailuresWithoutAborting(t *testing.T) {
	f := backend.NewFake()
	withRevisions(f, "A", "B", "C")
	f.FailVote["B"] = true
	g := NewGateway(f)

	report := g.ApplyVote(context.Background(), gwItems("A", "B", "C"), backend.VoteRequest{})

	if report.SuccessCount != 2 || report.FailureCount != 1 {
		t.Fatalf("expected 2 ok / 1 failed, got %+v", report)
	}
	if len(f.Votes) != 2 {
		t.Errorf("expected A and C voted despite B failing, got %+v", f.Votes)
	}
	lines := report.ErrorLines()
	if len(lines) != 1 || !strings.Contains(lines[0], "change 101") {
		t.Errorf("expected one detail line for change 101, got %v", lines)
	}
}

func TestApplyApprovalVotesApprovingLabelOnly(t *testing.T) {
	f := backend.NewFake()
	withRevisions(f, "A")
	g := NewGateway(f)

	report := g.ApplyApproval(context.Background(), gwItems("A"))

	if report.SuccessCount != 1 {
		t.Fatalf("expected success, got %+v", report)
	}
	labels := f.Votes[0].Request.Labels
	if len(labels) != 1 || labels[ApprovingLabel] != ApprovingValue {
		t.Errorf("expected only %s=%d, got %v", ApprovingLabel, ApprovingValue, labels)
	}
	if got := report.Succeeded(); len(got) != 1 || got[0] != "A" {
		t.Errorf("expected succeeded [A], got %v", got)
	}
}

func TestSubmitAllSkipsNonSubmittable(t *testing.T) {
	f := backend.NewFake()
	f.Submittable["B"] = backend.Submittability{Reason: "unmet requirements: Verified"}
	g := NewGateway(f)

	report := g.SubmitAll(context.Background(), gwItems("A", "B"))

	if report.SuccessCount != 1 || report.SkippedCount != 1 {
		t.Fatalf("expected 1 submitted / 1 skipped, got %+v", report)
	}
	if len(f.Submits) != 1 || f.Submits[0] != "A" {
		t.Errorf("expected only A submitted, got %v", f.Submits)
	}
	if got := report.Items[1]; !got.Skipped || !strings.Contains(got.Detail, "Verified") {
		t.Errorf("expected skip reason recorded, got %+v", got)
	}
	if got := report.Succeeded(); len(got) != 1 || got[0] != "A" {
		t.Errorf("expected succeeded [A], got %v", got)
	}
}

func TestSubmitAllCollectsSubmitErrors(t *testing.T) {
	f := backend.NewFake()
	f.FailSubmit["A"] = true
	g := NewGateway(f)

	report := g.SubmitAll(context.Background(), gwItems("A", "B"))

	if report.FailureCount != 1 || report.SuccessCount != 1 {
		t.Fatalf("expected 1 failure / 1 success, got %+v", report)
	}
}

func TestErrorLinesTruncate(t *testing.T) {
	var report Report
	for i := 0; i < maxErrorDetail+3; i++ {
		report.Items = append(report.Items, ItemResult{
			Number: i,
			Detail: fmt.Sprintf("boom %d", i),
		})
	}

	lines := report.ErrorLines()
	if len(lines) != maxErrorDetail+1 {
		t.Fatalf("expected %d lines, got %d: %v", maxErrorDetail+1, len(lines), lines)
	}
	if !strings.Contains(lines[maxErrorDetail], "3 more") {
		t.Errorf("expected truncation count, got %q", lines[maxErrorDetail])
	}
}
