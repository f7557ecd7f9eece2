package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/sprite-ai/batchrev/internal/model"
)

// Fake is an in-memory ReviewBackend for tests. All fields are safe to
// mutate before use; methods are safe for concurrent calls.
type Fake struct {
	mu sync.Mutex

	Assigned []model.ReviewItem
	// Chains maps a change id (restId or vcsId) to its relation chain,
	// tip first, as the real server reports it.
	Chains map[string][]RelatedChange
	// Refs maps ids to change refs for LookupChange.
	Refs map[string]ChangeRef
	// Revisions maps restId to its current revision.
	Revisions map[string]string
	// Submittable maps restId to its submit check result.
	Submittable map[string]Submittability
	// Files maps restId to its file list.
	Files map[string][]model.FileInfo
	// Patches maps restId to a unified diff.
	Patches map[string]string

	// FailRelated, FailVote and FailSubmit make the corresponding calls
	// error for the listed ids.
	FailRelated map[string]bool
	FailVote    map[string]bool
	FailSubmit  map[string]bool

	Votes   []VoteCall
	Submits []string
}

// VoteCall records one PostVote invocation.
type VoteCall struct {
	RestID     string
	RevisionID string
	Request    VoteRequest
}

// NewFake returns an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		Chains:      map[string][]RelatedChange{},
		Refs:        map[string]ChangeRef{},
		Revisions:   map[string]string{},
		Submittable: map[string]Submittability{},
		Files:       map[string][]model.FileInfo{},
		Patches:     map[string]string{},
		FailRelated: map[string]bool{},
		FailVote:    map[string]bool{},
		FailSubmit:  map[string]bool{},
	}
}

func (f *Fake) ListAssignedChanges(ctx context.Context, filter string) ([]model.ReviewItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ReviewItem, len(f.Assigned))
	copy(out, f.Assigned)
	return out, nil
}

func (f *Fake) RelatedChain(ctx context.Context, id string) ([]RelatedChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRelated[id] {
		return nil, fmt.Errorf("related lookup failed for %s", id)
	}
	return f.Chains[id], nil
}

func (f *Fake) LookupChange(ctx context.Context, id string) (ChangeRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.Refs[id]
	if !ok {
		return ChangeRef{}, fmt.Errorf("no such change %s", id)
	}
	return ref, nil
}

func (f *Fake) CurrentRevision(ctx context.Context, restID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev, ok := f.Revisions[restID]
	if !ok {
		return "", fmt.Errorf("no revision for %s", restID)
	}
	return rev, nil
}

func (f *Fake) PostVote(ctx context.Context, restID, revisionID string, req VoteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailVote[restID] {
		return fmt.Errorf("vote rejected for %s", restID)
	}
	f.Votes = append(f.Votes, VoteCall{RestID: restID, RevisionID: revisionID, Request: req})
	return nil
}

func (f *Fake) Submit(ctx context.Context, restID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSubmit[restID] {
		return fmt.Errorf("submit rejected for %s", restID)
	}
	f.Submits = append(f.Submits, restID)
	return nil
}

func (f *Fake) SubmitCheck(ctx context.Context, restID string) (Submittability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.Submittable[restID]; ok {
		return s, nil
	}
	return Submittability{Submittable: true}, nil
}

func (f *Fake) FileList(ctx context.Context, restID string) ([]model.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Files[restID], nil
}

func (f *Fake) Patch(ctx context.Context, restID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Patches[restID]
	if !ok {
		return "", fmt.Errorf("no patch for %s", restID)
	}
	return p, nil
}
