package httpapi

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huang-relay/pairrelay/internal/v1/coreerr"
	"github.com/huang-relay/pairrelay/internal/v1/idgen"
	"github.com/huang-relay/pairrelay/internal/v1/logging"
	"github.com/huang-relay/pairrelay/internal/v1/metrics"
	"github.com/huang-relay/pairrelay/internal/v1/rtc"
)

// RTCHandlers exposes the RTC Session Registry over HTTP.
type RTCHandlers struct {
	store *rtc.Store
}

func NewRTCHandlers(store *rtc.Store) *RTCHandlers {
	return &RTCHandlers{store: store}
}

type createRTCRequest struct {
	AppID   string `json:"app_id" binding:"required"`
	Channel string `json:"channel" binding:"required"`
	Token   string `json:"token" binding:"required"`
	HostUID uint32 `json:"host_uid"`
}

// sessionURL builds {proto}://{host}/session/{id}, using X-Forwarded-Proto
// when present, and defaulting to http only for loopback/private hosts.
func sessionURL(c *gin.Context, id string) string {
	proto := c.GetHeader("X-Forwarded-Proto")
	host := c.Request.Host
	if proto == "" {
		if isLoopbackOrPrivateHost(host) {
			proto = "http"
		} else {
			proto = "https"
		}
	}
	return proto + "://" + host + "/session/" + id
}

func isLoopbackOrPrivateHost(host string) bool {
	h := host
	if hh, _, err := net.SplitHostPort(host); err == nil {
		h = hh
	}
	h = strings.Trim(h, "[]")
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// CreateSession handles POST /api/rtc-sessions.
func (h *RTCHandlers) CreateSession(c *gin.Context) {
	var req createRTCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_id, channel, and token are required"})
		return
	}

	id := idgen.NewUUID()
	h.store.Create(id, req.AppID, req.Channel, req.Token, req.HostUID)

	c.JSON(http.StatusCreated, gin.H{
		"id":  id,
		"url": sessionURL(c, id),
	})
}

// GetSession handles GET /api/rtc-sessions/{id}.
func (h *RTCHandlers) GetSession(c *gin.Context) {
	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"app_id":     session.AppID,
		"channel":    session.Channel,
		"host_uid":   session.HostUID,
		"created_at": session.CreatedAt.UTC().Format(timeLayout),
	})
}

type joinRTCRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// Join handles POST /api/rtc-sessions/{id}/join.
func (h *RTCHandlers) Join(c *gin.Context) {
	id := c.Param("id")
	ctx := logging.WithRTCSessionID(c.Request.Context(), id)

	var req joinRTCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required and must be 1-100 characters"})
		return
	}

	info, err := h.store.Join(id, req.Name)
	if err != nil {
		metrics.RTCJoinsTotal.WithLabelValues("rejected").Inc()
		if coreErr, ok := err.(*coreerr.Error); ok && coreErr.Kind == coreerr.KindConflict {
			logging.Warn(ctx, "rtc session join rejected, room at capacity")
		}
		writeError(c, err)
		return
	}
	metrics.RTCJoinsTotal.WithLabelValues("ok").Inc()

	c.JSON(http.StatusOK, gin.H{
		"app_id":  info.AppID,
		"channel": info.Channel,
		"token":   info.Token,
		"uid":     info.UID,
		"name":    info.Name,
	})
}

// Delete handles DELETE /api/rtc-sessions/{id}.
func (h *RTCHandlers) Delete(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rtc session not found"})
		return
	}
	c.Status(http.StatusOK)
}
