package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrisense/agrisense/internal/version"
	"github.com/agrisense/agrisense/orchestrator"
)

type queryRequest struct {
	Query     string         `json:"query"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

type agentResultPayload struct {
	Agent         string         `json:"agent"`
	Success       bool           `json:"success"`
	Data          map[string]any `json:"data,omitempty"`
	Error         string         `json:"error,omitempty"`
	ExecutionTime float64        `json:"execution_time_seconds"`
}

type queryResponse struct {
	Success          bool                 `json:"success"`
	Answer           string               `json:"answer"`
	StructuredAnswer map[string]any       `json:"structured_payload"`
	Recommendations  []string             `json:"recommendations"`
	Warnings         []string             `json:"warnings"`
	Insights         []string             `json:"insights,omitempty"`
	AgentResults     []agentResultPayload `json:"per_agent_results"`
	Intent           string               `json:"intent"`
	Confidence       float64              `json:"confidence"`
	Language         string               `json:"language"`
	SessionID        string               `json:"session_id"`
	TraceID          string               `json:"trace_id"`
	ExecutionTime    float64              `json:"execution_time_seconds"`
}

func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	result := s.orchestrator.Process(c.Request().Context(), orchestrator.Query{
		Text:      req.Query,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Context:   req.Context,
	})
	return c.JSON(http.StatusOK, toQueryResponse(result))
}

func toQueryResponse(result *orchestrator.Result) queryResponse {
	agentResults := make([]agentResultPayload, 0, len(result.AgentResponses))
	for _, r := range result.AgentResponses {
		agentResults = append(agentResults, agentResultPayload{
			Agent:         r.AgentName,
			Success:       r.Success,
			Data:          r.Data,
			Error:         r.Error,
			ExecutionTime: r.ExecutionTime,
		})
	}

	return queryResponse{
		Success:          result.Success,
		Answer:           result.NaturalLanguage,
		StructuredAnswer: map[string]any{
			"answer":   result.Answer.Answer,
			"metadata": result.Answer.Metadata,
		},
		Recommendations: result.Answer.Recommendations,
		Warnings:        result.Answer.Warnings,
		Insights:        result.Answer.Insights,
		AgentResults:    agentResults,
		Intent:          string(result.Intent.Intent),
		Confidence:      result.Intent.Confidence,
		Language:        result.Intent.Language,
		SessionID:       result.SessionID,
		TraceID:         result.TraceID,
		ExecutionTime:   result.ExecutionTime,
	}
}

// handleQueryStream answers the same query contract over SSE. Each
// orchestrator event becomes one named SSE event; the stream ends after the
// terminal complete or error event.
func (s *Server) handleQueryStream(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)

	events := s.orchestrator.ProcessStream(c.Request().Context(), orchestrator.Query{
		Text:      req.Query,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Context:   req.Context,
	})

	for ev := range events {
		payload := toStreamPayload(ev)
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Error("server: sse marshal failed", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
			// Client went away; the orchestrator drains on context cancel.
			return nil
		}
		resp.Flush()
	}
	return nil
}

func toStreamPayload(ev orchestrator.Event) map[string]any {
	payload := map[string]any{
		"type":     string(ev.Type),
		"trace_id": ev.TraceID,
	}
	if len(ev.Agents) > 0 {
		payload["agents"] = ev.Agents
	}
	if ev.Agent != nil {
		payload["agent"] = agentResultPayload{
			Agent:         ev.Agent.AgentName,
			Success:       ev.Agent.Success,
			Data:          ev.Agent.Data,
			Error:         ev.Agent.Error,
			ExecutionTime: ev.Agent.ExecutionTime,
		}
	}
	if ev.Result != nil {
		payload["result"] = toQueryResponse(ev.Result)
	}
	if ev.Error != "" {
		payload["error"] = ev.Error
	}
	return payload
}

func (s *Server) handleListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"agents": s.registry.Specs(),
		"count":  s.registry.Len(),
	})
}

func (s *Server) handleGetSession(c echo.Context) error {
	sess, err := s.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	s.sessions.Delete(c.Request().Context(), c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleWorkflowStatus(c echo.Context) error {
	report := s.orchestrator.Engine().Status(c.Param("id"))
	if report == nil {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleHealthz(c echo.Context) error {
	current := version.GetCurrentVersion(s.profile.Mode)
	payload := map[string]any{
		"status":  "ok",
		"version": current,
		"agents":  s.registry.Len(),
	}
	// Clients probe compatibility by passing the minimum server version
	// they were built against.
	if min := c.QueryParam("min_version"); min != "" {
		payload["compatible"] = version.IsVersionGreaterOrEqualThan(current, min)
	}
	return c.JSON(http.StatusOK, payload)
}
