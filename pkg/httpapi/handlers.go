package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/orchestrator"
	"github.com/weldtech/sparky/pkg/recommend"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON payload"})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return false
	}
	return true
}

// loadUserContext merges the stored profile (when a store is wired) with
// the request's inline context; inline values win.
func (s *Server) loadUserContext(ctx context.Context, userID, sessionID string, inline intent.UserContext) intent.UserContext {
	if s.users == nil || userID == "" {
		return inline
	}
	stored, err := s.users.Load(ctx, userID, sessionID)
	if err != nil {
		return inline
	}
	merged := stored
	if inline.PreferredLanguage != "" {
		merged.PreferredLanguage = inline.PreferredLanguage
	}
	if inline.Organization != "" {
		merged.Organization = inline.Organization
	}
	if inline.IndustryContext != "" {
		merged.IndustryContext = inline.IndustryContext
	}
	if inline.Role != "" {
		merged.Role = inline.Role
	}
	if len(inline.ExpertiseHistory) > 0 {
		merged.ExpertiseHistory = inline.ExpertiseHistory
	}
	if len(inline.PreviousQueries) > 0 {
		merged.PreviousQueries = inline.PreviousQueries
	}
	return merged
}

func (s *Server) recordQuery(ctx context.Context, userID, sessionID, query string) {
	if s.users == nil || userID == "" || sessionID == "" {
		return
	}
	if err := s.users.RecordQuery(ctx, userID, sessionID, query); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("failed to record query in session history")
	}
}

// handleSparkyMessage is the chat entry point: POST /api/v1/sparky/message
// (spec.md §6). It never fails closed: a degraded pipeline still answers
// HTTP 200 with follow-up questions.
func (s *Server) handleSparkyMessage(w http.ResponseWriter, r *http.Request) {
	var req SparkyMessageRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	start := time.Now()
	uc := s.loadUserContext(r.Context(), req.UserID, sessionID, intent.UserContext{
		UserID:            req.UserID,
		SessionID:         sessionID,
		PreferredLanguage: req.Language,
	})
	result := s.orch.Handle(r.Context(), req.Message, uc, recommend.UserHints{Organization: uc.Organization})
	s.recordQuery(r.Context(), req.UserID, sessionID, req.Message)
	s.observe(start, result)

	resp := SparkyMessageResponse{
		Response:          chatText(result.Response),
		Requirements:      requirementsView(result.Intent),
		Packages:          packageViews(result.Response.Packages, 0),
		Confidence:        result.Response.OverallConfidence,
		ConversationID:    sessionID,
		FollowUpQuestions: result.Response.FollowUpQuestions,
	}
	if result.Intent.ExpertiseMode == intent.ModeGuided {
		resp.StepByStepBuilder = result.Response.NextSteps
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleEnterpriseRecommendations is POST /api/v1/enterprise/recommendations.
func (s *Server) handleEnterpriseRecommendations(w http.ResponseWriter, r *http.Request) {
	var req EnterpriseRecommendationRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	start := time.Now()
	uc := s.loadUserContext(r.Context(), req.UserContext.UserID, sessionID, req.UserContext.toDomain(sessionID))
	result := s.orch.Handle(r.Context(), req.Query, uc, recommend.UserHints{Organization: uc.Organization})
	s.recordQuery(r.Context(), req.UserContext.UserID, sessionID, req.Query)
	s.observe(start, result)

	elapsed := time.Since(start).Milliseconds()
	s.writeJSON(w, http.StatusOK, enterpriseResponse(result, sessionID, req.MaxResults, req.IncludeExplanations, elapsed))
}

func (s *Server) observe(start time.Time, result orchestrator.Result) {
	s.window.Observe(time.Since(start),
		result.Response.OverallConfidence,
		result.Recommendations.TrinityFormationRate,
		len(result.Response.Packages) > 0)
}

// handleEnterpriseMetrics is GET /api/v1/enterprise/metrics.
func (s *Server) handleEnterpriseMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.window.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "alive"})
}

// handleReadiness reports un-ready iff the graph store is unreachable
// (spec.md §6).
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.graph.HealthCheck(ctx); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "graph_store": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{}
	status := http.StatusOK

	if err := s.graph.HealthCheck(ctx); err != nil {
		components["graph_store"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		components["graph_store"] = "healthy"
	}

	if s.relational != nil {
		if err := s.relational.HealthCheck(ctx); err != nil {
			components["relational_store"] = err.Error()
		} else {
			components["relational_store"] = "healthy"
		}
	}

	s.writeJSON(w, status, map[string]any{
		"status":         http.StatusText(status),
		"components":     components,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}
