package gateway

import (
	"net/http"
	"strings"

	"voxgate/backend/identity/service"
	"voxgate/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const seedGreeting = "How can I help you today?"

// BootstrapHandler implements the Session Bootstrap Endpoint (C9):
// POST /api/chat/new, grounded on cmd/server/main.go's route registration
// style and conversation/api/handler.go's request/response shape.
type BootstrapHandler struct {
	verifier service.Verifier
	store    SessionStore
	log      *logger.Logger
}

// NewBootstrapHandler wires a BootstrapHandler.
func NewBootstrapHandler(verifier service.Verifier, store SessionStore, log *logger.Logger) *BootstrapHandler {
	return &BootstrapHandler{verifier: verifier, store: store, log: log}
}

type newChatRequest struct {
	Title string `json:"title"`
}

// CreateChat handles POST /api/chat/new (spec §4.9).
func (h *BootstrapHandler) CreateChat(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	identity, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
		return
	}

	var req newChatRequest
	_ = c.ShouldBindJSON(&req)

	chatID, err := h.store.CreateSession(c.Request.Context(), identity.UserID, req.Title)
	if err != nil {
		h.log.Error("failed to create session", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "backend unavailable"})
		return
	}

	if _, err := h.store.AppendMessage(c.Request.Context(), chatID, roleAssistant, seedGreeting, sourceText); err != nil {
		h.log.Error("failed to seed greeting message", "chatId", chatID, "error", err.Error())
	}

	session, err := h.store.LoadSession(c.Request.Context(), chatID, identity.UserID)
	if err != nil {
		h.log.Error("failed to reload created session", "chatId", chatID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "backend unavailable"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"chatId":      session.ID,
			"title":       session.Title,
			"createdAt":   session.CreatedAt,
			"lastUpdated": session.LastUpdated,
		},
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	return header
}
