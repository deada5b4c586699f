package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/huang-relay/pairrelay/internal/v1/health"
	"github.com/huang-relay/pairrelay/internal/v1/otp"
	"github.com/huang-relay/pairrelay/internal/v1/pairroom"
	"github.com/huang-relay/pairrelay/internal/v1/ratelimit"
	"github.com/huang-relay/pairrelay/internal/v1/rtc"
	"github.com/huang-relay/pairrelay/internal/v1/sessioncache"
	"github.com/huang-relay/pairrelay/internal/v1/voice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stores bundles the four core components a router needs to wire routes
// against.
type Stores struct {
	OTP          *otp.Store
	PairRoom     *pairroom.Hub
	RTC          *rtc.Store
	Voice        *voice.Store
	RateLimit    *ratelimit.RateLimiter
	Upgrader     *websocket.Upgrader
	SessionCache *sessioncache.Cache
}

// RegisterRoutes wires every external interface the relay exposes onto
// router, including the ambient health and metrics endpoints.
func RegisterRoutes(router *gin.Engine, s Stores) {
	otpH := NewOTPHandlers(s.OTP, s.SessionCache)
	pairH := NewPairRoomHandlers(s.PairRoom, s.Upgrader)
	rtcH := NewRTCHandlers(s.RTC)
	voiceH := NewVoiceHandlers(s.Voice)
	healthH := health.NewHandler()

	router.GET("/health/live", healthH.Liveness)
	router.GET("/health/ready", healthH.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(s.RateLimit.Middleware(ratelimit.EndpointAPIGlobal))
	{
		api.POST("/sessions", otpH.CreateSession)
		api.GET("/sessions/:id/status", otpH.Status)
		api.POST("/sessions/:id/grant", otpH.Grant)
		api.POST("/sessions/:id/deny", otpH.Deny)

		api.POST("/pair", s.RateLimit.Middleware(ratelimit.EndpointPair), pairH.CreatePair)
		api.GET("/pair/:code", pairH.PairStatus)

		api.POST("/rtc-sessions", s.RateLimit.Middleware(ratelimit.EndpointRTC), rtcH.CreateSession)
		api.GET("/rtc-sessions/:id", rtcH.GetSession)
		api.POST("/rtc-sessions/:id/join", s.RateLimit.Middleware(ratelimit.EndpointRTC), rtcH.Join)
		api.DELETE("/rtc-sessions/:id", rtcH.Delete)

		api.POST("/voice-sessions", s.RateLimit.Middleware(ratelimit.EndpointVoice), voiceH.CreateSession)
		api.POST("/voice-sessions/:id/trigger", voiceH.Trigger)
		api.POST("/voice-sessions/response", voiceH.SetResponse)
		api.GET("/voice-sessions/:id", voiceH.GetSession)
		api.DELETE("/voice-sessions/:id", voiceH.DeleteSession)

		api.POST("/llm/chat", s.RateLimit.Middleware(ratelimit.EndpointVoice), voiceH.Chat)
	}

	router.GET("/auth", pairH.AuthFallback)
	router.GET("/pair", pairH.PairLanding)
	router.GET("/ws", func(c *gin.Context) {
		if !s.RateLimit.CheckWebSocket(c) {
			return
		}
		pairH.ServeWS(c)
	})
}
