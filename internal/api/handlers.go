package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storyloop/internal/debug"
	"storyloop/internal/engine"
	"storyloop/internal/errs"
	"storyloop/internal/escalation"
	"storyloop/internal/logging"
	"storyloop/internal/risk"
)

const sessionHeader = "X-Session-ID"

// Narrator runs turns and exposes world snapshots.
type Narrator interface {
	Turn(ctx context.Context, req engine.TurnRequest) (engine.TurnResult, error)
	State() engine.WorldState
}

// TurnLog lists audited turns. A nil TurnLog disables /api/turns.
type TurnLog interface {
	RecentTurns(ctx context.Context, limit int) ([]logging.TurnRecord, error)
}

type Handler struct {
	narrator Narrator
	turns    TurnLog
	debug    *debug.Logger
}

func NewHandler(narrator Narrator, turns TurnLog, debugLogger *debug.Logger) *Handler {
	return &Handler{narrator: narrator, turns: turns, debug: debugLogger}
}

// NewRouter wires the handler's routes onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.Health)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/narrative", h.GenerateNarrative)
		apiGroup.GET("/world", h.WorldState)
		apiGroup.GET("/turns", h.RecentTurns)
	}
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type narrativeRequest struct {
	Action     string            `json:"action" binding:"required"`
	Location   string            `json:"location" binding:"required"`
	Actor      string            `json:"actor"`
	Signals    map[string]any    `json:"signals"`
	Escalation map[string]string `json:"escalation"`
}

type narrativeResponse struct {
	Text      string  `json:"text"`
	Escalated bool    `json:"escalated"`
	Outcome   string  `json:"outcome"`
	Event     string  `json:"event"`
	Category  string  `json:"category"`
	Score     float64 `json:"score"`
	Health    int     `json:"health"`
	Alive     bool    `json:"alive"`
	SessionID string  `json:"session_id"`
}

// GenerateNarrative runs one turn. The session id comes from the
// X-Session-ID header or is minted per request.
func (h *Handler) GenerateNarrative(c *gin.Context) {
	var req narrativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action and location are required"})
		return
	}

	sessionID := c.GetHeader(sessionHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	res, err := h.narrator.Turn(c.Request.Context(), engine.TurnRequest{
		Actor:      req.Actor,
		Action:     req.Action,
		Location:   req.Location,
		Signals:    risk.Signals(req.Signals),
		Escalation: escalation.Context(req.Escalation),
		SessionID:  sessionID,
	})
	if err != nil {
		h.debug.Printf("narrative request failed: %v", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.Header(sessionHeader, sessionID)
	c.JSON(http.StatusOK, narrativeResponse{
		Text:      res.Text,
		Escalated: res.Escalated(),
		Outcome:   string(res.Outcome.Kind),
		Event:     res.Event.ID,
		Category:  string(res.Event.Category),
		Score:     res.Assessment.Score,
		Health:    res.Actor.Health,
		Alive:     res.Actor.Alive,
		SessionID: sessionID,
	})
}

func (h *Handler) WorldState(c *gin.Context) {
	c.JSON(http.StatusOK, h.narrator.State())
}

func (h *Handler) RecentTurns(c *gin.Context) {
	if h.turns == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "turn log is disabled"})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	turns, err := h.turns.RecentTurns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": turns})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInputValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnknownScenario):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
