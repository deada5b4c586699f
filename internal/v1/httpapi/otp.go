package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huang-relay/pairrelay/internal/v1/coreerr"
	"github.com/huang-relay/pairrelay/internal/v1/logging"
	"github.com/huang-relay/pairrelay/internal/v1/metrics"
	"github.com/huang-relay/pairrelay/internal/v1/otp"
	"github.com/huang-relay/pairrelay/internal/v1/sessioncache"
)

// OTPHandlers exposes the OTP Session Manager over HTTP.
type OTPHandlers struct {
	store *otp.Store
	cache *sessioncache.Cache
}

func NewOTPHandlers(store *otp.Store, cache *sessioncache.Cache) *OTPHandlers {
	return &OTPHandlers{store: store, cache: cache}
}

type createSessionRequest struct {
	Hostname string `json:"hostname" binding:"required,min=1,max=255"`
}

type sessionResponse struct {
	ID        string `json:"id"`
	OTP       string `json:"otp,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
	Status    string `json:"status"`
	Token     string `json:"token,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func sessionToResponse(s otp.Session, includeCreationFields bool) sessionResponse {
	resp := sessionResponse{
		ID:     s.ID,
		Status: string(s.Status),
	}
	if s.Status == otp.StatusGranted {
		resp.Token = s.Token
	}
	if includeCreationFields {
		resp.OTP = s.OTP
		resp.Hostname = s.Hostname
		resp.CreatedAt = s.CreatedAt.UTC().Format(timeLayout)
		resp.ExpiresAt = s.ExpiresAt.UTC().Format(timeLayout)
	}
	return resp
}

// CreateSession handles POST /api/sessions.
func (h *OTPHandlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hostname is required and must be 1-255 characters"})
		return
	}

	session, err := h.store.Create(req.Hostname)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sessionToResponse(session, true))
}

// Status handles GET /api/sessions/{id}/status. A positive or negative
// lookup is recorded in the session-validation cache; a caller polling an
// id cached as not found gets a 404 without a store lookup. Ids cached as
// found are still read from the store, since their status can change.
func (h *OTPHandlers) Status(c *gin.Context) {
	id := c.Param("id")

	if valid, ok := h.cache.Get(id); ok && !valid {
		writeError(c, coreerr.NotFound("otp session %q not found", id))
		return
	}

	session, err := h.store.Get(id)
	if err != nil {
		h.cache.Set(id, false)
		writeError(c, err)
		return
	}
	h.cache.Set(id, true)
	c.JSON(http.StatusOK, sessionToResponse(session, false))
}

type grantRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// Grant handles POST /api/sessions/{id}/grant.
func (h *OTPHandlers) Grant(c *gin.Context) {
	id := c.Param("id")
	ctx := logging.WithOTPSessionID(c.Request.Context(), id)

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "otp is required"})
		return
	}

	session, err := h.store.Grant(id, req.OTP)
	if err != nil {
		metrics.OTPGrantsTotal.WithLabelValues("rejected").Inc()
		logging.Warn(ctx, "otp grant rejected")
		writeError(c, err)
		return
	}
	metrics.OTPGrantsTotal.WithLabelValues("granted").Inc()
	logging.Info(ctx, "otp session granted")
	c.JSON(http.StatusOK, sessionToResponse(session, false))
}

// Deny handles POST /api/sessions/{id}/deny.
func (h *OTPHandlers) Deny(c *gin.Context) {
	id := c.Param("id")
	ctx := logging.WithOTPSessionID(c.Request.Context(), id)

	session, err := h.store.Deny(id)
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.OTPGrantsTotal.WithLabelValues("denied").Inc()
	logging.Info(ctx, "otp session denied")
	c.JSON(http.StatusOK, sessionToResponse(session, false))
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
