package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/huang-relay/pairrelay/internal/v1/pairroom"
)

// PairRoomHandlers exposes the Pair-Room Relay over HTTP and WebSocket.
type PairRoomHandlers struct {
	hub      *pairroom.Hub
	upgrader *websocket.Upgrader
}

func NewPairRoomHandlers(hub *pairroom.Hub, upgrader *websocket.Upgrader) *PairRoomHandlers {
	return &PairRoomHandlers{hub: hub, upgrader: upgrader}
}

type createPairRequest struct {
	Hostname string `json:"hostname" binding:"required"`
}

// CreatePair handles POST /api/pair.
func (h *PairRoomHandlers) CreatePair(c *gin.Context) {
	var req createPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hostname is required"})
		return
	}

	code, err := h.hub.CreatePair(req.Hostname)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": code})
}

// PairStatus handles GET /api/pair/{code}.
func (h *PairRoomHandlers) PairStatus(c *gin.Context) {
	paired, hostname, err := h.hub.Status(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paired": paired, "hostname": hostname})
}

// ServeWS handles GET /ws?role=&code=.
func (h *PairRoomHandlers) ServeWS(c *gin.Context) {
	h.hub.ServeWS(c, h.upgrader)
}

// AuthFallback handles GET /auth?id=&tag=. It exists for hosts that open
// the authorization link in a plain browser tab instead of the native
// client. It serves the same static page for every request; it does not
// look up the id, so an unknown session still gets a 200.
func (h *PairRoomHandlers) AuthFallback(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(authFallbackHTML))
}

// PairLanding handles GET /pair?code=. It is the human-facing counterpart
// to the WebSocket endpoint, shown when a pairing link is opened directly.
func (h *PairRoomHandlers) PairLanding(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "code is required"})
		return
	}
	if _, _, err := h.hub.Status(code); err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(pairLandingHTML))
}

const authFallbackHTML = `<!DOCTYPE html>
<html><head><title>Authorize</title></head>
<body><p>Return to the host application to finish authorizing this session.</p></body>
</html>`

const pairLandingHTML = `<!DOCTYPE html>
<html><head><title>Pair</title></head>
<body><p>This device is ready to pair. Keep this tab open.</p></body>
</html>`
