package automation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sprite-ai/batchrev/internal/model"
)

// availableEndpoints is advertised on unknown routes and methods.
var availableEndpoints = []string{
	"GET /health",
	"GET /batch",
	"POST /batch",
	"DELETE /batch",
	"GET /events",
}

// batchRequestSchema validates POST /batch bodies before any typed
// decoding. Scores accept a severity token or, for backward compatibility,
// a legacy 1-10 integer confidence.
const batchRequestSchema = `{
	"type": "object",
	"required": ["changeIDs"],
	"additionalProperties": false,
	"properties": {
		"changeIDs": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1, "maxLength": 512}
		},
		"scores": {
			"type": "object",
			"additionalProperties": {
				"oneOf": [
					{"type": "string", "enum": ["CRITICAL", "HIGH", "MEDIUM", "LOW", "APPROVED"]},
					{"type": "integer", "minimum": 1, "maximum": 10}
				]
			}
		}
	}
}`

var batchSchema = jsonschema.MustCompileString("batch-request.json", batchRequestSchema)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.handleNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Batch ---

type batchResponse struct {
	Success bool               `json:"success,omitempty"`
	Batch   []model.ReviewItem `json:"batch"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleBatchGet(w, r)
	case http.MethodPost:
		s.handleBatchPost(w, r)
	case http.MethodDelete:
		s.handleBatchDelete(w, r)
	default:
		s.handleNotFound(w, r)
	}
}

func (s *Server) handleBatchGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, batchResponse{Batch: batchOrEmpty(s.ctrl.Snapshot())})
}

type batchPostRequest struct {
	ChangeIDs []string                   `json:"changeIDs"`
	Scores    map[string]json.RawMessage `json:"scores"`
}

func (s *Server) handleBatchPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "reading request: "+err.Error())
		return
	}

	// Schema validation first: any invalid entry rejects the whole
	// request before the queue is touched.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := batchSchema.Validate(body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	var req batchPostRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	severities := make(map[string]model.Severity, len(req.Scores))
	for id, score := range req.Scores {
		sev, ok := parseScore(score)
		if !ok {
			// Unreachable past the schema, but the queue must never see
			// an unparsed score.
			writeError(w, http.StatusBadRequest, "invalid score for "+id)
			return
		}
		severities[id] = sev
	}

	s.ctrl.AddToBatch(req.ChangeIDs, severities)
	writeJSON(w, http.StatusOK, batchResponse{Success: true, Batch: batchOrEmpty(s.ctrl.Snapshot())})
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	s.ctrl.ClearBatch()
	writeJSON(w, http.StatusOK, batchResponse{Success: true, Batch: batchOrEmpty(s.ctrl.Snapshot())})
}

// --- Fallback ---

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":              "unknown endpoint: " + r.Method + " " + r.URL.Path,
		"availableEndpoints": availableEndpoints,
	})
}

// parseScore accepts a severity token or a legacy integer confidence.
func parseScore(raw json.RawMessage) (model.Severity, bool) {
	var tok string
	if err := json.Unmarshal(raw, &tok); err == nil {
		return model.ParseSeverity(tok)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return model.SeverityFromConfidence(n)
	}
	return model.SeverityNone, false
}

// batchOrEmpty keeps the JSON batch an array, never null.
func batchOrEmpty(snap model.Snapshot) []model.ReviewItem {
	if snap.Batch == nil {
		return []model.ReviewItem{}
	}
	return snap.Batch
}
