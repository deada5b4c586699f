// Package metrics declares the Prometheus collectors for the relay
// service.
//
// Naming convention: namespace_subsystem_name
//   - namespace: pairrelay (application-level grouping)
//   - subsystem: otp, rtc, pairroom, voice, rate_limit (component grouping)
//   - name: specific metric
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OTPSessionsActive tracks the current number of live OTP sessions.
	OTPSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pairrelay",
		Subsystem: "otp",
		Name:      "sessions_active",
		Help:      "Current number of OTP sessions held in memory",
	})

	// OTPGrantsTotal counts grant/deny outcomes.
	OTPGrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairrelay",
		Subsystem: "otp",
		Name:      "grants_total",
		Help:      "Total OTP grant/deny decisions",
	}, []string{"outcome"})

	// PairRoomsActive tracks the current number of pair rooms.
	PairRoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pairrelay",
		Subsystem: "pairroom",
		Name:      "rooms_active",
		Help:      "Current number of pair rooms held in memory",
	})

	// PairRoomConnections tracks active websocket connections per role.
	PairRoomConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pairrelay",
		Subsystem: "pairroom",
		Name:      "connections_active",
		Help:      "Current number of active pair room websocket connections",
	}, []string{"role"})

	// PairRoomFramesRelayed counts forwarded text frames.
	PairRoomFramesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairrelay",
		Subsystem: "pairroom",
		Name:      "frames_relayed_total",
		Help:      "Total text frames forwarded to a peer",
	}, []string{"status"})

	// RTCSessionsActive tracks the current number of RTC sessions.
	RTCSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pairrelay",
		Subsystem: "rtc",
		Name:      "sessions_active",
		Help:      "Current number of RTC sessions held in memory",
	})

	// RTCJoinsTotal counts join attempts by outcome.
	RTCJoinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairrelay",
		Subsystem: "rtc",
		Name:      "joins_total",
		Help:      "Total RTC session join attempts",
	}, []string{"outcome"})

	// VoiceSessionsActive tracks the current number of voice sessions.
	VoiceSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pairrelay",
		Subsystem: "voice",
		Name:      "sessions_active",
		Help:      "Current number of voice sessions held in memory",
	})

	// VoiceRendezvousDuration tracks how long chat rendezvous calls block.
	VoiceRendezvousDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pairrelay",
		Subsystem: "voice",
		Name:      "rendezvous_seconds",
		Help:      "Time spent in the voice session rendezvous handler",
		Buckets:   []float64{.001, .01, .1, .5, 1, 5, 15, 30},
	}, []string{"outcome"})

	// RateLimitExceeded tracks the total number of requests that exceeded
	// the rate limit.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairrelay",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint"})

	// RateLimitRequests tracks the total number of requests the rate
	// limiter let through; rejected requests are counted in
	// RateLimitExceeded instead.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairrelay",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests allowed by the rate limiter",
	}, []string{"endpoint"})
)

// SetActiveCounts sets the four *Active gauges directly from each store's
// current size, called periodically from a ticker rather than incremented
// piecemeal at every create/delete call site — a store's janitor removes
// entries on its own schedule, so a derived count avoids drift.
func SetActiveCounts(otpCount, pairRoomCount, rtcCount, voiceCount int) {
	OTPSessionsActive.Set(float64(otpCount))
	PairRoomsActive.Set(float64(pairRoomCount))
	RTCSessionsActive.Set(float64(rtcCount))
	VoiceSessionsActive.Set(float64(voiceCount))
}
