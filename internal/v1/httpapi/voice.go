package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huang-relay/pairrelay/internal/v1/coreerr"
	"github.com/huang-relay/pairrelay/internal/v1/logging"
	"github.com/huang-relay/pairrelay/internal/v1/metrics"
	"github.com/huang-relay/pairrelay/internal/v1/voice"
)

// VoiceHandlers exposes the Voice Session Buffer over HTTP.
type VoiceHandlers struct {
	store *voice.Store
}

func NewVoiceHandlers(store *voice.Store) *VoiceHandlers {
	return &VoiceHandlers{store: store}
}

type createVoiceRequest struct {
	AtemID  string `json:"atem_id" binding:"required"`
	Channel string `json:"channel" binding:"required"`
}

// CreateSession handles POST /api/voice-sessions.
func (h *VoiceHandlers) CreateSession(c *gin.Context) {
	var req createVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "atem_id and channel are required"})
		return
	}

	sessionID := uuid.NewString()
	session := h.store.Create(sessionID, req.AtemID, req.Channel)

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.SessionID,
		"atem_id":    session.AtemID,
		"channel":    session.Channel,
		"created_at": session.CreatedAt.UTC().Format(timeLayout),
	})
}

// Trigger handles POST /api/voice-sessions/{id}/trigger.
func (h *VoiceHandlers) Trigger(c *gin.Context) {
	id := c.Param("id")

	session, err := h.store.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}

	text, err := h.store.Trigger(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":       id,
		"accumulated_text": text,
		"atem_id":          session.AtemID,
	})
}

type setResponseRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Response  string `json:"response" binding:"required"`
}

// SetResponse handles POST /api/voice-sessions/response.
func (h *VoiceHandlers) SetResponse(c *gin.Context) {
	var req setResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and response are required"})
		return
	}

	if err := h.store.SetResponse(req.SessionID, req.Response); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "response delivered"})
}

// GetSession handles GET /api/voice-sessions/{id} — a debug view of the
// full session state, not exposed to the chat-completion surface.
func (h *VoiceHandlers) GetSession(c *gin.Context) {
	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":    session.SessionID,
		"atem_id":       session.AtemID,
		"channel":       session.Channel,
		"state":         session.State,
		"has_response":  session.HasResponse,
		"created_at":    session.CreatedAt.UTC().Format(timeLayout),
		"last_activity": session.LastActivity.UTC().Format(timeLayout),
		"request_count": session.RequestCount,
	})
}

// DeleteSession handles DELETE /api/voice-sessions/{id}.
func (h *VoiceHandlers) DeleteSession(c *gin.Context) {
	h.store.Delete(c.Param("id"))
	c.Status(http.StatusOK)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// Chat handles POST /api/llm/chat: the OpenAI-compatible envelope over the
// voice session rendezvous. The session id travels in a header, not the
// body, since the body shape is fixed by the chat-completion contract.
func (h *VoiceHandlers) Chat(c *gin.Context) {
	sessionID := c.GetHeader("X-Voice-Session-ID")
	if sessionID == "" {
		sessionID = c.GetHeader("X-Session-ID")
	}
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Voice-Session-ID or X-Session-ID header is required"})
		return
	}

	var req chatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages is required"})
		return
	}

	var text string
	for _, m := range req.Messages {
		if m.Role == "user" {
			text = m.Content
		}
	}

	ctx := logging.WithVoiceSessionID(c.Request.Context(), sessionID)

	start := time.Now()
	outcome := "ok"
	result, err := h.store.Rendezvous(ctx, sessionID, text)
	if err != nil {
		if coreErr, ok := err.(*coreerr.Error); ok && coreErr.Kind == coreerr.KindTimeout {
			outcome = "timeout"
			logging.Warn(ctx, "voice rendezvous timed out")
		} else {
			outcome = "error"
		}
		metrics.VoiceRendezvousDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		writeError(c, err)
		return
	}
	metrics.VoiceRendezvousDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, chatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   "pairrelay-voice-bridge",
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMessage{Role: "assistant", Content: result.Content},
				FinishReason: "stop",
			},
		},
	})
}
