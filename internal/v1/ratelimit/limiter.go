// Package ratelimit implements per-endpoint request rate limiting keyed by
// client IP, backed by an in-memory ulule/limiter store. The relay runs as
// a single process with no shared state to coordinate across instances, so
// there is no need for a distributed store here.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huang-relay/pairrelay/internal/v1/config"
	"github.com/huang-relay/pairrelay/internal/v1/logging"
	"github.com/huang-relay/pairrelay/internal/v1/metrics"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// Endpoint names the rate-limited API surfaces this relay exposes.
type Endpoint string

const (
	EndpointAPIGlobal Endpoint = "api_global"
	EndpointPair      Endpoint = "pair"
	EndpointRTC       Endpoint = "rtc"
	EndpointVoice     Endpoint = "voice"
	EndpointWSConnect Endpoint = "ws_connect"
)

// RateLimiter holds one ulule/limiter instance per endpoint class, all
// backed by the same in-memory store.
type RateLimiter struct {
	apiGlobal *limiter.Limiter
	pair      *limiter.Limiter
	rtc       *limiter.Limiter
	voice     *limiter.Limiter
	wsIP      *limiter.Limiter
}

// NewRateLimiter builds a RateLimiter from validated config.
func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	store := memory.NewStore()

	apiGlobalRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIGlobal)
	if err != nil {
		return nil, fmt.Errorf("invalid API global rate: %w", err)
	}
	pairRate, err := limiter.NewRateFromFormatted(cfg.RateLimitPair)
	if err != nil {
		return nil, fmt.Errorf("invalid pair rate: %w", err)
	}
	rtcRate, err := limiter.NewRateFromFormatted(cfg.RateLimitRTC)
	if err != nil {
		return nil, fmt.Errorf("invalid RTC rate: %w", err)
	}
	voiceRate, err := limiter.NewRateFromFormatted(cfg.RateLimitVoice)
	if err != nil {
		return nil, fmt.Errorf("invalid voice rate: %w", err)
	}
	wsIPRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWSIP)
	if err != nil {
		return nil, fmt.Errorf("invalid WS IP rate: %w", err)
	}

	return &RateLimiter{
		apiGlobal: limiter.New(store, apiGlobalRate),
		pair:      limiter.New(store, pairRate),
		rtc:       limiter.New(store, rtcRate),
		voice:     limiter.New(store, voiceRate),
		wsIP:      limiter.New(store, wsIPRate),
	}, nil
}

func (rl *RateLimiter) instanceFor(endpoint Endpoint) *limiter.Limiter {
	switch endpoint {
	case EndpointPair:
		return rl.pair
	case EndpointRTC:
		return rl.rtc
	case EndpointVoice:
		return rl.voice
	case EndpointWSConnect:
		return rl.wsIP
	default:
		return rl.apiGlobal
	}
}

// Middleware returns a gin middleware enforcing the named endpoint's rate
// limit, keyed by client IP. A store failure fails open: availability
// matters more than a missed limit for a single in-memory counter.
func (rl *RateLimiter) Middleware(endpoint Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := string(endpoint) + ":" + c.ClientIP()

		limiterCtx, err := rl.instanceFor(endpoint).Get(ctx, key)
		if err != nil {
			logging.Error(ctx, "rate limiter store failed", zap.Error(err), zap.String("endpoint", string(endpoint)))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(limiterCtx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(limiterCtx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(limiterCtx.Reset, 10))

		if limiterCtx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(string(endpoint)).Inc()
			c.Header("Retry-After", strconv.FormatInt(limiterCtx.Reset, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": limiterCtx.Reset,
			})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(string(endpoint)).Inc()
		c.Next()
	}
}

// CheckWebSocket enforces the per-IP websocket connect limit outside the
// normal gin middleware chain, for handlers that upgrade the connection
// themselves before any response has been written.
func (rl *RateLimiter) CheckWebSocket(c *gin.Context) bool {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	limiterCtx, err := rl.wsIP.Get(ctx, string(EndpointWSConnect)+":"+ip)
	if err != nil {
		logging.Error(ctx, "ws rate limiter store failed", zap.Error(err))
		return true
	}

	if limiterCtx.Reached {
		metrics.RateLimitExceeded.WithLabelValues(string(EndpointWSConnect)).Inc()
		c.Header("Retry-After", strconv.FormatInt(limiterCtx.Reset, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connections from this IP"})
		return false
	}

	metrics.RateLimitRequests.WithLabelValues(string(EndpointWSConnect)).Inc()
	return true
}
