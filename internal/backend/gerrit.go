package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sprite-ai/batchrev/internal/model"
)

// gerritMagicPrefix guards Gerrit JSON responses against XSSI; it must be
// stripped before decoding.
const gerritMagicPrefix = ")]}'"

// GerritClient talks to a Gerrit server over its REST API.
type GerritClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewGerritClient creates a client for the given server. Credentials are
// sent as HTTP basic auth on the authenticated /a/ prefix.
func NewGerritClient(baseURL, username, password string) *GerritClient {
	return &GerritClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *GerritClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/a"+path, reqBody)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}

	trimmed := bytes.TrimPrefix(raw, []byte(gerritMagicPrefix))
	if s, ok := out.(*string); ok {
		*s = strings.TrimSpace(string(trimmed))
		return nil
	}
	if err := json.Unmarshal(bytes.TrimSpace(trimmed), out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

// changeInfo mirrors the subset of Gerrit's ChangeInfo we consume.
type changeInfo struct {
	ID          string        `json:"id"`
	ChangeID    string        `json:"change_id"`
	Number      int           `json:"_number"`
	Subject     string        `json:"subject"`
	Project     string        `json:"project"`
	Branch      string        `json:"branch"`
	Status      string        `json:"status"`
	Updated     string        `json:"updated"`
	Submittable bool          `json:"submittable"`
	Owner       accountInfo   `json:"owner"`
	Labels      map[string]labelInfo `json:"labels"`
	SubmitReqs  []submitRequirement  `json:"submit_requirements"`
}

type accountInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type labelInfo struct {
	Approved *accountInfo `json:"approved"`
}

type submitRequirement struct {
	Name   string `json:"name"`
	Status string `json:"status"` // SATISFIED, UNSATISFIED, NOT_APPLICABLE
}

// gerritTime is the format Gerrit uses for timestamps (UTC, no zone).
const gerritTime = "2006-01-02 15:04:05.000000000"

func (ci changeInfo) toItem(baseURL string) model.ReviewItem {
	updated, _ := time.Parse(gerritTime, ci.Updated)
	item := model.ReviewItem{
		RestID:      ci.ID,
		VcsID:       ci.ChangeID,
		Number:      ci.Number,
		Subject:     ci.Subject,
		Project:     ci.Project,
		Branch:      ci.Branch,
		Owner:       ci.Owner.Name,
		UpdatedAt:   updated,
		Submittable: ci.Submittable,
		WebURL:      fmt.Sprintf("%s/c/%s/+/%d", baseURL, ci.Project, ci.Number),
	}
	if lbl, ok := ci.Labels["Code-Review"]; ok && lbl.Approved != nil {
		item.HasApprovingVote = true
	}
	return item
}

// ListAssignedChanges implements ReviewBackend.
func (c *GerritClient) ListAssignedChanges(ctx context.Context, filter string) ([]model.ReviewItem, error) {
	if filter == "" {
		filter = "is:open reviewer:self -owner:self"
	}
	path := "/changes/?q=" + url.QueryEscape(filter) + "&o=DETAILED_ACCOUNTS&o=LABELS&o=SUBMITTABLE"

	var infos []changeInfo
	if err := c.do(ctx, http.MethodGet, path, nil, &infos); err != nil {
		return nil, fmt.Errorf("listing assigned changes: %w", err)
	}

	items := make([]model.ReviewItem, 0, len(infos))
	for _, ci := range infos {
		items = append(items, ci.toItem(c.baseURL))
	}
	return items, nil
}

// relatedInfo mirrors Gerrit's RelatedChangesInfo.
type relatedInfo struct {
	Changes []struct {
		Commit struct {
			Commit string `json:"commit"`
		} `json:"commit"`
		ChangeID string `json:"change_id"`
		Number   int    `json:"_change_number"`
		Status   string `json:"status"`
	} `json:"changes"`
}

// RelatedChain implements ReviewBackend. Gerrit reports the chain tip first.
func (c *GerritClient) RelatedChain(ctx context.Context, id string) ([]RelatedChange, error) {
	path := "/changes/" + url.PathEscape(id) + "/revisions/current/related"

	var info relatedInfo
	if err := c.do(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, fmt.Errorf("fetching related changes: %w", err)
	}

	chain := make([]RelatedChange, 0, len(info.Changes))
	for _, rc := range info.Changes {
		chain = append(chain, RelatedChange{
			Commit: rc.Commit.Commit,
			VcsID:  rc.ChangeID,
			Number: rc.Number,
			Status: rc.Status,
		})
	}
	return chain, nil
}

// LookupChange implements ReviewBackend.
func (c *GerritClient) LookupChange(ctx context.Context, id string) (ChangeRef, error) {
	var ci changeInfo
	if err := c.do(ctx, http.MethodGet, "/changes/"+url.PathEscape(id), nil, &ci); err != nil {
		return ChangeRef{}, fmt.Errorf("looking up change %s: %w", id, err)
	}
	return ChangeRef{VcsID: ci.ChangeID, Number: ci.Number, Status: ci.Status}, nil
}

// CurrentRevision implements ReviewBackend.
func (c *GerritClient) CurrentRevision(ctx context.Context, restID string) (string, error) {
	var ci struct {
		CurrentRevision string `json:"current_revision"`
	}
	path := "/changes/" + url.PathEscape(restID) + "?o=CURRENT_REVISION"
	if err := c.do(ctx, http.MethodGet, path, nil, &ci); err != nil {
		return "", fmt.Errorf("fetching current revision: %w", err)
	}
	if ci.CurrentRevision == "" {
		return "", fmt.Errorf("change %s has no current revision", restID)
	}
	return ci.CurrentRevision, nil
}

// reviewInput mirrors Gerrit's ReviewInput.
type reviewInput struct {
	Labels    map[string]int  `json:"labels,omitempty"`
	Message   string          `json:"message,omitempty"`
	Reviewers []reviewerInput `json:"reviewers,omitempty"`
	Comments  map[string]any  `json:"comments,omitempty"`
}

type reviewerInput struct {
	Reviewer string `json:"reviewer"`
	State    string `json:"state,omitempty"`
}

// PostVote implements ReviewBackend.
func (c *GerritClient) PostVote(ctx context.Context, restID, revisionID string, req VoteRequest) error {
	in := reviewInput{
		Labels:  req.Labels,
		Message: req.Message,
	}
	for _, r := range req.Reviewers {
		in.Reviewers = append(in.Reviewers, reviewerInput{Reviewer: r})
	}
	for _, cc := range req.CC {
		in.Reviewers = append(in.Reviewers, reviewerInput{Reviewer: cc, State: "CC"})
	}

	path := "/changes/" + url.PathEscape(restID) + "/revisions/" + url.PathEscape(revisionID) + "/review"
	if err := c.do(ctx, http.MethodPost, path, in, nil); err != nil {
		return fmt.Errorf("posting vote: %w", err)
	}
	return nil
}

// Submit implements ReviewBackend.
func (c *GerritClient) Submit(ctx context.Context, restID string) error {
	path := "/changes/" + url.PathEscape(restID) + "/submit"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, nil); err != nil {
		return fmt.Errorf("submitting change: %w", err)
	}
	return nil
}

// SubmitCheck implements ReviewBackend.
func (c *GerritClient) SubmitCheck(ctx context.Context, restID string) (Submittability, error) {
	var ci changeInfo
	path := "/changes/" + url.PathEscape(restID) + "?o=SUBMITTABLE&o=SUBMIT_REQUIREMENTS"
	if err := c.do(ctx, http.MethodGet, path, nil, &ci); err != nil {
		return Submittability{}, fmt.Errorf("checking submittability: %w", err)
	}
	if ci.Submittable {
		return Submittability{Submittable: true}, nil
	}

	var unmet []string
	for _, sr := range ci.SubmitReqs {
		if sr.Status == "UNSATISFIED" {
			unmet = append(unmet, sr.Name)
		}
	}
	reason := "not submittable"
	if len(unmet) > 0 {
		reason = "unmet requirements: " + strings.Join(unmet, ", ")
	}
	return Submittability{Reason: reason}, nil
}

// FileList implements ReviewBackend.
func (c *GerritClient) FileList(ctx context.Context, restID string) ([]model.FileInfo, error) {
	var files map[string]struct {
		Status        string `json:"status"`
		LinesInserted int    `json:"lines_inserted"`
		LinesDeleted  int    `json:"lines_deleted"`
	}
	path := "/changes/" + url.PathEscape(restID) + "/revisions/current/files"
	if err := c.do(ctx, http.MethodGet, path, nil, &files); err != nil {
		return nil, fmt.Errorf("fetching file list: %w", err)
	}

	out := make([]model.FileInfo, 0, len(files))
	for p, f := range files {
		if p == "/COMMIT_MSG" || p == "/MERGE_LIST" {
			continue
		}
		out = append(out, model.FileInfo{
			Path:      p,
			Status:    f.Status,
			Additions: f.LinesInserted,
			Deletions: f.LinesDeleted,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Patch implements ReviewBackend. Gerrit serves patches base64-encoded.
func (c *GerritClient) Patch(ctx context.Context, restID string) (string, error) {
	var encoded string
	path := "/changes/" + url.PathEscape(restID) + "/revisions/current/patch"
	if err := c.do(ctx, http.MethodGet, path, nil, &encoded); err != nil {
		return "", fmt.Errorf("fetching patch: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding patch: %w", err)
	}
	return string(decoded), nil
}
