package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/suitecore/crosscoord/pkg/crosscoord"
	crosserrors "github.com/suitecore/crosscoord/pkg/crosscoord/errors"
	"github.com/suitecore/crosscoord/pkg/crosscoord/event"
	"github.com/suitecore/crosscoord/pkg/crosscoord/relation"
	"github.com/suitecore/crosscoord/pkg/crosscoord/validation"
)

// validateRequest is the body of POST /validate.
type validateRequest struct {
	Operation string         `json:"operation" validate:"required"`
	Data      map[string]any `json:"data" validate:"required"`
	Context   map[string]any `json:"context"`
}

// validateBatchRequest is the body of POST /validate/batch.
type validateBatchRequest struct {
	Operations []validateRequest `json:"operations" validate:"required,min=1,dive"`
}

// dispatchEventRequest is the body of POST /events.
type dispatchEventRequest struct {
	EventType string         `json:"event_type" validate:"required"`
	Payload   map[string]any `json:"payload" validate:"required"`
	UserID    int64          `json:"user_id" validate:"omitempty,gt=0"`
	ProjectID int64          `json:"project_id" validate:"omitempty,gt=0"`
	Metadata  map[string]any `json:"metadata"`
}

// processEventsRequest is the body of POST /events/process. Limit is a
// pointer so an explicit zero (process nothing) is distinct from an
// absent field (default 100). Timeout is advisory and echoed back; the
// caller enforces it.
type processEventsRequest struct {
	Limit   *int `json:"limit" validate:"omitempty,gte=0"`
	Timeout int  `json:"timeout" validate:"omitempty,gt=0"`
}

// clearCacheRequest is the body of POST /cache/clear.
type clearCacheRequest struct {
	Type string `json:"type"`
}

// decodeAndValidate parses a JSON body into dst and runs struct validation.
// A false return means the response has already been written.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "request body must be valid JSON")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeUnprocessable(w, "invalid request data", "request failed validation", err.Error())
		return false
	}
	return true
}

// relationshipResponse is a Graph plus its per-kind entity counts.
type relationshipResponse struct {
	relation.Graph
	Totals map[string]int `json:"totals"`
}

func (s *Server) handleRelationships(anchor relation.Anchor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			writeBadRequest(w, "id must be a positive integer")
			return
		}

		graph, err := s.coord.Related(r.Context(), anchor, id)
		if err != nil {
			s.logger.Error("relationship aggregation failed",
				"anchor", string(anchor), "id", id, "error", err)
			writeInternalError(w, "failed to get relationships", err.Error())
			return
		}

		writeSuccess(w, http.StatusOK, relationshipResponse{
			Graph:  graph,
			Totals: graph.TotalsByKind(),
		}, "relationships retrieved")
	}
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	result := s.coord.Validate(r.Context(), req.Operation, req.Data, req.Context)

	if result.Unsupported() {
		writeUnprocessable(w, "unsupported operation", result.Messages()[0], nil)
		return
	}

	messages := result.Messages()
	message := "operation is valid"
	if !result.Valid() {
		message = "operation is invalid"
	}
	writeResult(w, result.Valid(), map[string]any{
		"operation": req.Operation,
		"valid":     result.Valid(),
		"errors":    messages,
	}, message)
}

func (s *Server) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	var req validateBatchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	requests := make([]validation.BatchRequest, 0, len(req.Operations))
	for _, op := range req.Operations {
		requests = append(requests, validation.BatchRequest{
			Operation: op.Operation,
			Data:      op.Data,
			Context:   op.Context,
		})
	}

	results := s.coord.ValidateBatch(r.Context(), requests)

	allValid := true
	items := make([]map[string]any, 0, len(results))
	for _, res := range results {
		if !res.Valid() {
			allValid = false
		}
		items = append(items, map[string]any{
			"operation": res.Operation,
			"valid":     res.Valid(),
			"errors":    res.Messages(),
		})
	}

	message := "all operations are valid"
	if !allValid {
		message = "one or more operations are invalid"
	}
	writeResult(w, allValid, map[string]any{"results": items}, message)
}

func (s *Server) handleDispatchEvent(w http.ResponseWriter, r *http.Request) {
	var req dispatchEventRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	opts := []event.Option{}
	if req.UserID > 0 {
		opts = append(opts, event.WithUserID(req.UserID))
	}
	if req.ProjectID > 0 {
		opts = append(opts, event.WithProjectID(req.ProjectID))
	}
	if len(req.Metadata) > 0 {
		opts = append(opts, event.WithMetadata(req.Metadata))
	}

	evt, err := s.coord.DispatchEvent(r.Context(), req.EventType, req.Payload, opts...)

	var unsupported *crosserrors.UnsupportedEventTypeError
	if errors.As(err, &unsupported) {
		writeUnprocessable(w, "unsupported event type", unsupported.Error(), nil)
		return
	}
	if err != nil {
		// Immediate listener failure: the event is queued regardless
		s.logger.Warn("immediate listener failed during dispatch",
			"event_type", req.EventType, "error", err)
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"event_id":      evt.ID(),
		"event_type":    evt.Type(),
		"dispatched_at": evt.OccurredAt().Format(time.RFC3339),
	}, "event dispatched")
}

func (s *Server) handlePendingEvents(w http.ResponseWriter, _ *http.Request) {
	pending := s.coord.PendingEvents()
	writeSuccess(w, http.StatusOK, map[string]any{
		"count":  len(pending),
		"events": pending,
	}, "pending events retrieved")
}

func (s *Server) handleProcessEvents(w http.ResponseWriter, r *http.Request) {
	var req processEventsRequest
	if r.ContentLength > 0 {
		if !s.decodeAndValidate(w, r, &req) {
			return
		}
	}
	limit := 100
	if req.Limit != nil {
		limit = *req.Limit
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = 30
	}

	result := s.coord.ProcessEvents(r.Context(), limit)
	writeSuccess(w, http.StatusOK, map[string]any{
		"processed_count": result.Processed,
		"remaining_count": result.Remaining,
		"failure_count":   result.Failures,
		"limit":           limit,
		"timeout":         timeout,
	}, "event queue processed")
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, s.coord.Stats(), "statistics retrieved")
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	req := clearCacheRequest{Type: crosscoord.ScopeAll}
	if r.ContentLength > 0 {
		if !s.decodeAndValidate(w, r, &req) {
			return
		}
	}
	if req.Type == "" {
		req.Type = crosscoord.ScopeAll
	}

	switch req.Type {
	case crosscoord.ScopeAll, crosscoord.ScopeValidations, crosscoord.ScopeEvents:
	default:
		writeUnprocessable(w, "invalid cache type",
			"type '"+req.Type+"' is not supported", nil)
		return
	}

	result := s.coord.ClearCache(req.Type)
	writeSuccess(w, http.StatusOK, map[string]any{
		"cache_type":     result.Scope,
		"dropped_events": result.DroppedEvents,
		"cleared_at":     time.Now().UTC().Format(time.RFC3339),
	}, "cache cleared")
}
