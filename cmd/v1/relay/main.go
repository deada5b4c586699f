// Command relay runs the pairing, RTC, pair-room, and voice-session
// rendezvous service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/huang-relay/pairrelay/internal/v1/config"
	"github.com/huang-relay/pairrelay/internal/v1/httpapi"
	"github.com/huang-relay/pairrelay/internal/v1/logging"
	"github.com/huang-relay/pairrelay/internal/v1/metrics"
	"github.com/huang-relay/pairrelay/internal/v1/middleware"
	"github.com/huang-relay/pairrelay/internal/v1/otp"
	"github.com/huang-relay/pairrelay/internal/v1/pairroom"
	"github.com/huang-relay/pairrelay/internal/v1/ratelimit"
	"github.com/huang-relay/pairrelay/internal/v1/rtc"
	"github.com/huang-relay/pairrelay/internal/v1/sessioncache"
	"github.com/huang-relay/pairrelay/internal/v1/voice"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// .env is optional; environment variables alone are enough.
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		panic(err)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info(ctx, "starting relay", cfg.LogFields()...)

	otpStore := otp.NewStore()
	pairHub := pairroom.NewHub()
	rtcStore := rtc.NewStore()
	voiceStore := voice.NewStore()
	sessionCache := sessioncache.NewCache()

	otpInterval, err := time.ParseDuration(cfg.OTPJanitorInterval)
	if err != nil {
		panic(err)
	}
	pairInterval, err := time.ParseDuration(cfg.PairJanitorInterval)
	if err != nil {
		panic(err)
	}
	rtcInterval, err := time.ParseDuration(cfg.RTCJanitorInterval)
	if err != nil {
		panic(err)
	}
	voiceInterval, err := time.ParseDuration(cfg.VoiceJanitorInterval)
	if err != nil {
		panic(err)
	}

	go otpStore.RunJanitor(ctx, otpInterval)
	go pairHub.RunJanitor(ctx, pairInterval)
	go rtcStore.RunJanitor(ctx, rtcInterval)
	go voiceStore.RunJanitor(ctx, voiceInterval)
	go sessionCache.RunJanitor(ctx, 300*time.Second)
	go runMetricsRefresh(ctx, otpStore, pairHub, rtcStore, voiceStore)

	rateLimiter, err := ratelimit.NewRateLimiter(cfg)
	if err != nil {
		panic(err)
	}

	upgrader := pairroom.NewUpgrader(cfg.AllowedOrigin)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigin
	corsConfig.AddAllowHeaders("Authorization", "X-Correlation-ID", "X-Voice-Session-ID", "X-Session-ID")
	if len(cfg.AllowedOrigin) == 1 && cfg.AllowedOrigin[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowOrigins = nil
	}
	router.Use(cors.New(corsConfig))

	httpapi.RegisterRoutes(router, httpapi.Stores{
		OTP:          otpStore,
		PairRoom:     pairHub,
		RTC:          rtcStore,
		Voice:        voiceStore,
		RateLimit:    rateLimiter,
		Upgrader:     upgrader,
		SessionCache: sessionCache,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(context.Background(), "forced shutdown", zap.Error(err))
	}

	logging.Info(context.Background(), "exited")
	os.Exit(0)
}

func runMetricsRefresh(ctx context.Context, otpStore *otp.Store, pairHub *pairroom.Hub, rtcStore *rtc.Store, voiceStore *voice.Store) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetActiveCounts(otpStore.Count(), pairHub.Count(), rtcStore.Count(), voiceStore.Count())
		}
	}
}
