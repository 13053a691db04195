// Package handler exposes the chat service over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/agrichat/internal/agrichat/biz"
	"github.com/kart-io/agrichat/internal/model"
)

// ChatHandler handles chat API requests.
type ChatHandler struct {
	svc            biz.Service
	requestTimeout time.Duration
}

// NewChatHandler creates a chat handler with the given request timeout.
func NewChatHandler(svc biz.Service, requestTimeout time.Duration) *ChatHandler {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	return &ChatHandler{
		svc:            svc,
		requestTimeout: requestTimeout,
	}
}

// Ask answers a question within a session.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "question and session_id are required"})
		return
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.SessionID) == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "question and session_id must not be blank"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	answer, err := h.svc.Ask(ctx, req.SessionID, req.Question)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusRequestTimeout, model.ErrorResponse{Error: "request timed out"})
			return
		}
		logger.Errorw("Failed to answer question", "session_id", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to answer question"})
		return
	}

	c.JSON(http.StatusOK, model.AskResponse{
		Answer:    answer,
		SessionID: req.SessionID,
	})
}

// NewSession mints a new session identifier.
func (h *ChatHandler) NewSession(c *gin.Context) {
	id, err := h.svc.NewSession(c.Request.Context())
	if err != nil {
		logger.Errorw("Failed to create session", "error", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to create session"})
		return
	}
	c.JSON(http.StatusOK, model.SessionResponse{SessionID: id})
}

// DeleteSession removes a session. Unknown sessions delete cleanly.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteSession(c.Request.Context(), id); err != nil {
		logger.Errorw("Failed to delete session", "session_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to delete session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSessions returns the identifiers of all known sessions.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	ids, err := h.svc.ListSessions(c.Request.Context())
	if err != nil {
		logger.Errorw("Failed to list sessions", "error", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, model.SessionListResponse{Sessions: ids})
}

// History returns the ordered history of a session.
func (h *ChatHandler) History(c *gin.Context) {
	id := c.Param("id")
	history, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		logger.Errorw("Failed to load session history", "session_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to load session history"})
		return
	}
	c.JSON(http.StatusOK, model.HistoryResponse{
		SessionID: id,
		History:   history,
	})
}

// Stats returns pipeline and storage statistics.
func (h *ChatHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		logger.Errorw("Failed to collect stats", "error", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to collect stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Healthz reports service liveness.
func (h *ChatHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
