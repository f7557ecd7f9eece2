// Package backend defines the narrow interface batchrev uses to talk to a
// code-review server, plus a Gerrit REST implementation.
package backend

import (
	"context"

	"github.com/sprite-ai/batchrev/internal/model"
)

// RelatedChange is one member of a change's relation chain, ordered as the
// server reports it: tip first, base last.
type RelatedChange struct {
	Commit string
	VcsID  string
	Number int
	Status string // NEW, MERGED, ABANDONED; empty when the server omitted it
}

// ChangeRef identifies a single change's stable identifiers and lifecycle
// status, used when a related-changes entry arrives incomplete.
type ChangeRef struct {
	VcsID  string
	Number int
	Status string
}

// VoteRequest carries one review mutation: label votes plus optional
// message, reviewer additions and thread resolution.
type VoteRequest struct {
	Labels    map[string]int
	Message   string
	Reviewers []string
	CC        []string
	Resolved  bool
}

// Submittability reports whether a change can be submitted right now and,
// when it cannot, the unmet requirement.
type Submittability struct {
	Submittable bool
	Reason      string
}

// ReviewBackend is the only outward-facing surface of the orchestration
// core. Every call is fallible and context-aware; callers own retry policy.
type ReviewBackend interface {
	// ListAssignedChanges fetches the changes matching the reviewer's
	// incoming-queue query.
	ListAssignedChanges(ctx context.Context, filter string) ([]model.ReviewItem, error)

	// RelatedChain returns the relation chain containing the given change,
	// tip first. A standalone change yields a single-entry (or empty) chain.
	RelatedChain(ctx context.Context, id string) ([]RelatedChange, error)

	// LookupChange resolves a change (by restId, vcsId or commit) to its
	// stable identifiers and status.
	LookupChange(ctx context.Context, id string) (ChangeRef, error)

	// CurrentRevision returns the current revision id of a change.
	CurrentRevision(ctx context.Context, restID string) (string, error)

	// PostVote applies label votes to the given revision.
	PostVote(ctx context.Context, restID, revisionID string, req VoteRequest) error

	// Submit submits a change for merge.
	Submit(ctx context.Context, restID string) error

	// SubmitCheck re-reads the change's submittable status.
	SubmitCheck(ctx context.Context, restID string) (Submittability, error)

	// FileList fetches the files touched by the current revision.
	FileList(ctx context.Context, restID string) ([]model.FileInfo, error)

	// Patch fetches the current revision's patch as a unified diff.
	Patch(ctx context.Context, restID string) (string, error)
}
