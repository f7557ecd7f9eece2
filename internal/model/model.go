// Package model defines the core data types shared across batchrev.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity is a reviewer- or automation-assigned priority label used to
// order the batch queue. Higher values sort first.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityApproved
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityApproved:
		return "APPROVED"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return ""
	}
}

// Priority returns the sort weight: CRITICAL=5 down to APPROVED=1, none=0.
func (s Severity) Priority() int {
	return int(s)
}

// ParseSeverity recognizes a severity token, case-insensitively.
func ParseSeverity(tok string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(tok)) {
	case "APPROVED":
		return SeverityApproved, true
	case "LOW":
		return SeverityLow, true
	case "MEDIUM":
		return SeverityMedium, true
	case "HIGH":
		return SeverityHigh, true
	case "CRITICAL":
		return SeverityCritical, true
	}
	return SeverityNone, false
}

// SeverityFromConfidence maps a legacy 1-10 confidence score onto the
// severity scale: 9-10 CRITICAL, 7-8 HIGH, 5-6 MEDIUM, 3-4 LOW, 1-2 APPROVED.
func SeverityFromConfidence(n int) (Severity, bool) {
	switch {
	case n >= 9 && n <= 10:
		return SeverityCritical, true
	case n >= 7 && n <= 8:
		return SeverityHigh, true
	case n >= 5 && n <= 6:
		return SeverityMedium, true
	case n >= 3 && n <= 4:
		return SeverityLow, true
	case n >= 1 && n <= 2:
		return SeverityApproved, true
	}
	return SeverityNone, false
}

// MarshalJSON encodes the severity as its token, or null when unset.
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == SeverityNone {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts a severity token or null.
func (s *Severity) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = SeverityNone
		return nil
	}
	var tok string
	if err := json.Unmarshal(data, &tok); err != nil {
		return err
	}
	sev, ok := ParseSeverity(tok)
	if !ok {
		return fmt.Errorf("unknown severity %q", tok)
	}
	*s = sev
	return nil
}

// FileInfo describes one file touched by a change.
type FileInfo struct {
	Path      string `json:"path"`
	Status    string `json:"status,omitempty"` // A, D, R or empty for modified
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// ReviewItem is a single change under review.
//
// RestID is the stable composite key (project~branch~shortId) used for all
// queue and selection bookkeeping. VcsID is the dependency-chain identifier
// the resolver keys on. Number is the human-facing change number.
type ReviewItem struct {
	RestID    string    `json:"restId"`
	VcsID     string    `json:"vcsId"`
	Number    int       `json:"number"`
	Subject   string    `json:"subject"`
	Project   string    `json:"project"`
	Branch    string    `json:"branch"`
	Owner     string    `json:"owner"`
	UpdatedAt time.Time `json:"updatedAt"`

	Severity         Severity   `json:"severity,omitempty"`
	Files            []FileInfo `json:"files,omitempty"`
	FilesLoaded      bool       `json:"filesLoaded,omitempty"`
	Submittable      bool       `json:"submittable,omitempty"`
	HasApprovingVote bool       `json:"hasApprovingVote,omitempty"`
	WebURL           string     `json:"webUrl,omitempty"`
}

// ChainInfo describes a change's place in its relation chain.
// Position 1 is the base (earliest unmerged ancestor), increasing toward
// the tip. A change with no active relations reports InChain false.
type ChainInfo struct {
	InChain         bool   `json:"inChain"`
	Position        int    `json:"position,omitempty"`
	ChainLength     int    `json:"chainLength,omitempty"`
	ChainBaseID     string `json:"chainBaseId,omitempty"`
	ChainBaseNumber int    `json:"chainBaseNumber,omitempty"`
}

// ServerState is the automation server lifecycle state.
type ServerState string

const (
	ServerStopped  ServerState = "stopped"
	ServerStarting ServerState = "starting"
	ServerRunning  ServerState = "running"
)

// Snapshot is the full observable state pushed to the presentation layer
// after every mutation.
type Snapshot struct {
	Incoming    []ReviewItem `json:"incoming"`
	Batch       []ReviewItem `json:"batch"`
	IncomingSel []string     `json:"incomingSelection"`
	BatchSel    []string     `json:"batchSelection"`
	ServerState ServerState  `json:"serverState"`
	ServerPort  int          `json:"serverPort,omitempty"`
}
