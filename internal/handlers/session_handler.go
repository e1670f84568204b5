package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/middleware"
	"github.com/ArowuTest/bmd-member-registry/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// streamRefresh re-renders the dashboard even without store changes so the
// battery percentages and today's date stay current.
const streamRefresh = 30 * time.Second

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(sessionID string) (string, time.Time, error)
}

// SessionHandler handles the per-user session endpoints
type SessionHandler struct {
	sessions *services.SessionService
	tokens   TokenIssuer
	logger   zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions *services.SessionService, tokens TokenIssuer, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

// NameRequest identifies a member by first and last name
type NameRequest struct {
	FirstName string `json:"firstName" binding:"max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
}

// DeleteRequest is the body of POST /session/delete
type DeleteRequest struct {
	NameRequest
	Confirm bool `json:"confirm"`
}

// OpenSession handles POST /sessions
func (h *SessionHandler) OpenSession(c *gin.Context) {
	sess, err := h.sessions.Open(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	token, expiresAt, err := h.tokens.Issue(sess.ID)
	if err != nil {
		_ = h.sessions.Close(c.Request.Context(), sess.ID)
		h.logger.Error().Err(err).Msg("failed to issue session token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":     token,
		"sessionId": sess.ID,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

// GetSession handles GET /session
func (h *SessionHandler) GetSession(c *gin.Context) {
	dashboard, err := h.sessions.Dashboard(c.Request.Context(), c.GetString(middleware.SessionIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// Identify handles POST /session/identify
func (h *SessionHandler) Identify(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	dashboard, err := h.sessions.Connect(c.Request.Context(), c.GetString(middleware.SessionIDKey), req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// Register handles POST /session/members
func (h *SessionHandler) Register(c *gin.Context) {
	var req services.RegistrationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	dashboard, err := h.sessions.Register(c.Request.Context(), c.GetString(middleware.SessionIDKey), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dashboard)
}

// DeleteMember handles POST /session/delete
func (h *SessionHandler) DeleteMember(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	dashboard, err := h.sessions.Delete(c.Request.Context(), c.GetString(middleware.SessionIDKey), req.FirstName, req.LastName, req.Confirm)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// CloseSession handles DELETE /session
func (h *SessionHandler) CloseSession(c *gin.Context) {
	if err := h.sessions.Close(c.Request.Context(), c.GetString(middleware.SessionIDKey)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream handles GET /session/stream, pushing a "dashboard" event on every
// directory change until the client disconnects.
func (h *SessionHandler) Stream(c *gin.Context) {
	id := c.GetString(middleware.SessionIDKey)
	ctx := c.Request.Context()
	first, err := h.sessions.Dashboard(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	updates, release := h.sessions.Listen()
	defer release()
	ticker := time.NewTicker(streamRefresh)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("dashboard", first)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-updates:
		case <-ticker.C:
		}
		dashboard, err := h.sessions.Dashboard(ctx, id)
		if err != nil {
			c.SSEvent("error", gin.H{"error": err.Error()})
			return false
		}
		c.SSEvent("dashboard", dashboard)
		return true
	})
}
