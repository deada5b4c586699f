package pairroom

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/huang-relay/pairrelay/internal/v1/logging"
	"github.com/huang-relay/pairrelay/internal/v1/metrics"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// NewUpgrader builds a websocket.Upgrader whose CheckOrigin accepts only
// the configured origins, or everything when allowedOrigins contains "*"
// (permissive/dev mode) or is empty. A request with no Origin header is
// always accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	permissive := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			permissive = true
		}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if permissive {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(u.Host, allowed) || strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
}

// ServeWS handles GET /ws?role=&code=. It validates the role and room
// before upgrading, then blocks for the lifetime of the connection running
// the reader loop; the writer runs in its own goroutine.
func (h *Hub) ServeWS(c *gin.Context, upgrader *websocket.Upgrader) {
	roleParam := c.Query("role")
	code := c.Query("code")

	var role Role
	switch roleParam {
	case string(RoleHost):
		role = RoleHost
	case string(RoleClient):
		role = RoleClient
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be host or client"})
		return
	}

	r := h.lookup(code)
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pair room not found"})
		return
	}

	ctx := logging.WithPairCode(c.Request.Context(), code)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(ctx, "pair room websocket upgrade failed", zap.Error(err))
		return
	}

	h.handleConnection(ctx, code, role, conn)
}

func (h *Hub) handleConnection(ctx context.Context, code string, role Role, conn *websocket.Conn) {
	sink := make(chan string, sinkBuffer)

	r := h.lookup(code)
	if r == nil {
		_ = conn.Close()
		return
	}
	r.setSink(role, sink)
	metrics.PairRoomConnections.WithLabelValues(string(role)).Inc()
	defer metrics.PairRoomConnections.WithLabelValues(string(role)).Dec()

	// quit signals writePump to stop; it is only ever closed here, by the
	// single goroutine that owns this connection, so writePump never
	// observes a send racing a close the way closing sink itself would.
	quit := make(chan struct{})
	done := make(chan struct{})
	go h.writePump(conn, sink, quit, done)

	h.readPump(ctx, r, role, conn)

	close(quit)
	<-done

	bothAbsent := r.clearSink(role, sink)
	if bothAbsent {
		h.removeIfEmpty(code)
	}
	_ = conn.Close()
	logging.Info(ctx, "pair room connection closed", zap.String("role", string(role)))
}

// writePump dequeues from sink and writes each text frame to the socket.
// It exits when quit is closed or a write fails. sink is never closed: a
// peer's readPump may still hold a reference to it after this connection
// has gone away, and sending on it must never race a close.
func (h *Hub) writePump(conn *websocket.Conn, sink chan string, quit chan struct{}, done chan struct{}) {
	defer close(done)
	for {
		select {
		case text := <-sink:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				return
			}
		case <-quit:
			return
		}
	}
}

// readPump reads text frames and forwards each to the other role's current
// sink, looked up fresh on every frame so the relay never buffers ahead of
// what the peer's live connection can be found at. Binary/ping/pong frames
// other than close are ignored.
func (h *Hub) readPump(ctx context.Context, r *room, role Role, conn *websocket.Conn) {
	peerRole := RoleClient
	if role == RoleClient {
		peerRole = RoleHost
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logging.Warn(ctx, "pair room read error", zap.String("role", string(role)))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		peerSink := r.sinkFor(peerRole)
		if peerSink == nil {
			metrics.PairRoomFramesRelayed.WithLabelValues("no_peer").Inc()
			continue
		}
		select {
		case peerSink <- string(data):
			metrics.PairRoomFramesRelayed.WithLabelValues("relayed").Inc()
		default:
			metrics.PairRoomFramesRelayed.WithLabelValues("dropped_full").Inc()
			logging.Warn(ctx, "pair room peer sink full, dropping frame", zap.String("role", string(peerRole)))
		}
	}
}
