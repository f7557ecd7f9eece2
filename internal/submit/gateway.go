// Package submit is the sole path by which queued changes are mutated on
// the review backend. Its entry points are reached only from confirmed
// human actions; the automation server holds no reference to this package.
package submit

import (
	"context"
	"fmt"
	"log"

	"github.com/sprite-ai/batchrev/internal/backend"
	"github.com/sprite-ai/batchrev/internal/model"
)

// maxErrorDetail bounds how many per-item failures a report spells out;
// anything beyond becomes a truncation count.
const maxErrorDetail = 5

// ApprovingLabel is the label an approval-only pass votes on.
const ApprovingLabel = "Code-Review"

// ApprovingValue is the vote posted by an approval-only pass.
const ApprovingValue = 2

// ItemResult records the outcome for one change.
type ItemResult struct {
	RestID  string
	Number  int
	OK      bool
	Skipped bool
	Detail  string // error text or skip reason
}

// Report aggregates a gateway operation across the batch.
type Report struct {
	SuccessCount int
	FailureCount int
	SkippedCount int
	Items        []ItemResult
}

// Succeeded returns the restIds of the items that went through.
func (r Report) Succeeded() []string {
	var out []string
	for _, it := range r.Items {
		if it.OK {
			out = append(out, it.RestID)
		}
	}
	return out
}

// ErrorLines renders the failed and skipped items, at most maxErrorDetail
// lines plus a truncation count.
func (r Report) ErrorLines() []string {
	var lines []string
	omitted := 0
	for _, it := range r.Items {
		if it.OK {
			continue
		}
		if len(lines) >= maxErrorDetail {
			omitted++
			continue
		}
		lines = append(lines, fmt.Sprintf("change %d: %s", it.Number, it.Detail))
	}
	if omitted > 0 {
		lines = append(lines, fmt.Sprintf("…and %d more", omitted))
	}
	return lines
}

// Gateway performs vote and submit mutations against the backend.
type Gateway struct {
	backend backend.ReviewBackend
}

// NewGateway creates a gateway over the given backend.
func NewGateway(b backend.ReviewBackend) *Gateway {
	return &Gateway{backend: b}
}

// ApplyVote posts the given label votes to every item, in the order given
// (the organizer's order: chain bases before their dependents). Each item
// is mutated independently; a failure never aborts the rest.
func (g *Gateway) ApplyVote(ctx context.Context, items []model.ReviewItem, req backend.VoteRequest) Report {
	var report Report
	for _, item := range items {
		res := ItemResult{RestID: item.RestID, Number: item.Number}

		rev, err := g.backend.CurrentRevision(ctx, item.RestID)
		if err == nil {
			err = g.backend.PostVote(ctx, item.RestID, rev, req)
		}
		if err != nil {
			res.Detail = err.Error()
			report.FailureCount++
			log.Printf("submit: vote on change %d failed: %v", item.Number, err)
		} else {
			res.OK = true
			report.SuccessCount++
		}
		report.Items = append(report.Items, res)
	}
	return report
}

// ApplyApproval posts only the approving label to every item, same ordering
// contract as ApplyVote. Callers use the succeeded ids to flag items as
// locally approved, enabling a later SubmitAll.
func (g *Gateway) ApplyApproval(ctx context.Context, items []model.ReviewItem) Report {
	return g.ApplyVote(ctx, items, backend.VoteRequest{
		Labels: map[string]int{ApprovingLabel: ApprovingValue},
	})
}

// SubmitAll submits every item in order, re-checking submittability
// immediately before each submit: sibling submissions completing first can
// flip a dependent change's status either way. Non-submittable items are
// skipped with the unmet-requirement detail; failures and skips never abort
// the rest.
func (g *Gateway) SubmitAll(ctx context.Context, items []model.ReviewItem) Report {
	var report Report
	for _, item := range items {
		res := ItemResult{RestID: item.RestID, Number: item.Number}

		check, err := g.backend.SubmitCheck(ctx, item.RestID)
		switch {
		case err != nil:
			res.Detail = err.Error()
			report.FailureCount++
			log.Printf("submit: check on change %d failed: %v", item.Number, err)
		case !check.Submittable:
			res.Skipped = true
			res.Detail = check.Reason
			report.SkippedCount++
			log.Printf("submit: skipping change %d: %s", item.Number, check.Reason)
		default:
			if err := g.backend.Submit(ctx, item.RestID); err != nil {
				res.Detail = err.Error()
				report.FailureCount++
				log.Printf("submit: change %d failed: %v", item.Number, err)
			} else {
				res.OK = true
				report.SuccessCount++
			}
		}
		report.Items = append(report.Items, res)
	}
	return report
}
