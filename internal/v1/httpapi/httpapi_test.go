package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huang-relay/pairrelay/internal/v1/config"
	"github.com/huang-relay/pairrelay/internal/v1/otp"
	"github.com/huang-relay/pairrelay/internal/v1/pairroom"
	"github.com/huang-relay/pairrelay/internal/v1/ratelimit"
	"github.com/huang-relay/pairrelay/internal/v1/rtc"
	"github.com/huang-relay/pairrelay/internal/v1/sessioncache"
	"github.com/huang-relay/pairrelay/internal/v1/voice"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	cfg := &config.Config{
		RateLimitAPIGlobal: "1000-M",
		RateLimitPair:      "1000-M",
		RateLimitRTC:       "1000-M",
		RateLimitVoice:     "1000-M",
		RateLimitWSIP:      "1000-M",
	}
	rl, err := ratelimit.NewRateLimiter(cfg)
	require.NoError(t, err)

	RegisterRoutes(router, Stores{
		OTP:          otp.NewStore(),
		PairRoom:     pairroom.NewHub(),
		RTC:          rtc.NewStore(),
		Voice:        voice.NewStore(),
		RateLimit:    rl,
		Upgrader:     pairroom.NewUpgrader(nil),
		SessionCache: sessioncache.NewCache(),
	})
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var r *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGrantLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/sessions", map[string]string{"hostname": "m1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"].(string)
	code := created["otp"].(string)

	w = doJSON(router, http.MethodGet, "/api/sessions/"+id+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/sessions/"+id+"/grant", map[string]string{"otp": "00000000"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodPost, "/api/sessions/"+id+"/grant", map[string]string{"otp": code})
	require.Equal(t, http.StatusOK, w.Code)
	var granted map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &granted))
	token := granted["token"].(string)
	require.Len(t, token, 64)

	w = doJSON(router, http.MethodPost, "/api/sessions/"+id+"/grant", map[string]string{"otp": code})
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodGet, "/api/sessions/"+id+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, "granted", status["status"])
	require.Equal(t, token, status["token"])
}

func TestRTCCap(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/rtc-sessions", map[string]any{
		"app_id": "a", "channel": "c", "token": "t", "host_uid": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"].(string)

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := doJSON(router, http.MethodPost, "/api/rtc-sessions/"+id+"/join", map[string]string{"name": "p"})
			results[i] = w.Code
		}(i)
	}
	wg.Wait()

	ok, conflict := 0, 0
	for _, code := range results {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	require.Equal(t, 8, ok)
	require.Equal(t, 2, conflict)
}

func TestVoiceChatImmediate(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/voice-sessions", map[string]string{"atem_id": "atem1", "channel": "ch1"})
	require.Equal(t, http.StatusOK, w.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	sessionID := created["session_id"].(string)

	w = doJSON(router, http.MethodPost, "/api/voice-sessions/response", map[string]string{
		"session_id": sessionID, "response": "hi",
	})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/llm/chat", bytes.NewReader(mustJSON(map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hello"}},
	})))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Voice-Session-ID", sessionID)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp))
	choices := resp["choices"].([]any)
	message := choices[0].(map[string]any)["message"].(map[string]any)
	require.Equal(t, "hi", message["content"])

	// session consumed: second call 404s
	req2 := httptest.NewRequest(http.MethodPost, "/api/llm/chat", bytes.NewReader(mustJSON(map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hello again"}},
	})))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("X-Voice-Session-ID", sessionID)
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req2)
	require.Equal(t, http.StatusNotFound, w3.Code)
}

func TestVoiceChatBlockingThenResponse(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/voice-sessions", map[string]string{"atem_id": "atem1", "channel": "ch1"})
	require.Equal(t, http.StatusOK, w.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	sessionID := created["session_id"].(string)

	w = doJSON(router, http.MethodPost, "/api/voice-sessions/"+sessionID+"/trigger", nil)
	require.Equal(t, http.StatusOK, w.Code)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/llm/chat", bytes.NewReader(mustJSON(map[string]any{
			"messages": []map[string]string{{"role": "user", "content": "continuing"}},
		})))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Voice-Session-ID", sessionID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		done <- rec
	}()

	time.Sleep(100 * time.Millisecond)
	w = doJSON(router, http.MethodPost, "/api/voice-sessions/response", map[string]string{
		"session_id": sessionID, "response": "ok",
	})
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case rec := <-done:
		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		choices := resp["choices"].([]any)
		message := choices[0].(map[string]any)["message"].(map[string]any)
		require.Equal(t, "ok", message["content"])
	case <-time.After(5 * time.Second):
		t.Fatal("blocking chat call did not return")
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
