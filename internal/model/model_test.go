package model

import (
	"encoding/json"
	"testing"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{SeverityApproved, "APPROVED"},
		{SeverityLow, "LOW"},
		{SeverityMedium, "MEDIUM"},
		{SeverityHigh, "HIGH"},
		{SeverityCritical, "CRITICAL"},
		{SeverityNone, ""},
	}
	for _, tt := range tests {
		if got := tt.sev.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.sev, got, tt.want)
		}
	}
}

func TestSeverityPriorityOrder(t *testing.T) {
	order := []Severity{SeverityNone, SeverityApproved, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Priority() <= order[i-1].Priority() {
			t.Errorf("expected %s to outrank %s", order[i], order[i-1])
		}
	}
	if SeverityCritical.Priority() != 5 || SeverityApproved.Priority() != 1 || SeverityNone.Priority() != 0 {
		t.Errorf("unexpected priority values: %d %d %d",
			SeverityCritical.Priority(), SeverityApproved.Priority(), SeverityNone.Priority())
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		tok  string
		want Severity
		ok   bool
	}{
		{"CRITICAL", SeverityCritical, true},
		{"critical", SeverityCritical, true},
		{" high ", SeverityHigh, true},
		{"APPROVED", SeverityApproved, true},
		{"URGENT", SeverityNone, false},
		{"", SeverityNone, false},
	}
	for _, tt := range tests {
		got, ok := ParseSeverity(tt.tok)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSeverity(%q) = %v, %v; want %v, %v", tt.tok, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSeverityFromConfidence(t *testing.T) {
	tests := []struct {
		n    int
		want Severity
		ok   bool
	}{
		{1, SeverityApproved, true},
		{2, SeverityApproved, true},
		{3, SeverityLow, true},
		{5, SeverityMedium, true},
		{8, SeverityHigh, true},
		{10, SeverityCritical, true},
		{0, SeverityNone, false},
		{11, SeverityNone, false},
		{-3, SeverityNone, false},
	}
	for _, tt := range tests {
		got, ok := SeverityFromConfidence(tt.n)
		if got != tt.want || ok != tt.ok {
			t.Errorf("SeverityFromConfidence(%d) = %v, %v; want %v, %v", tt.n, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSeverityJSONRoundTrip(t *testing.T) {
	item := ReviewItem{RestID: "proj~main~I1", Severity: SeverityHigh}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ReviewItem
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Severity != SeverityHigh {
		t.Errorf("expected HIGH after round trip, got %v", back.Severity)
	}

	var bad Severity
	if err := json.Unmarshal([]byte(`"URGENT"`), &bad); err == nil {
		t.Error("expected error for unknown severity token")
	}
}
