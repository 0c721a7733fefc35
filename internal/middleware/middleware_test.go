package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var testLog = logger_i.NewLogger("middleware_test")

func TestIPRateLimiter(t *testing.T) {
	t.Run("separate bucket per address", func(t *testing.T) {
		l := NewIPRateLimiter(rate.Limit(1), 1)
		assert.True(t, l.GetLimiter("10.0.0.1").Allow())
		assert.False(t, l.GetLimiter("10.0.0.1").Allow())
		assert.True(t, l.GetLimiter("10.0.0.2").Allow())
		assert.Equal(t, 2, l.Tracked())
	})

	t.Run("idle buckets are swept when full", func(t *testing.T) {
		clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		l := NewIPRateLimiter(rate.Limit(1), 1)
		l.maxTracked = 2
		l.idleTTL = time.Minute
		l.now = func() time.Time { return clock }

		l.GetLimiter("stale")
		clock = clock.Add(50 * time.Second)
		l.GetLimiter("recent")
		clock = clock.Add(30 * time.Second)
		l.GetLimiter("new")

		assert.Equal(t, 2, l.Tracked())
		_, kept := l.visitors["recent"]
		assert.True(t, kept)
		_, dropped := l.visitors["stale"]
		assert.False(t, dropped)
	})
}

func TestInjectTrace(t *testing.T) {
	t.Run("keeps caller trace id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status/x", nil)
		req.Header.Set(traceHeader, "trace-123")
		rec := httptest.NewRecorder()

		re := injectTrace(requestResponseStruct{req: req, writer: rec, logger: testLog})

		require.False(t, re.badRequest.isBadRequest)
		assert.Equal(t, "trace-123", re.req.Context().Value(config.TRACE_ID_KEY))
		assert.Equal(t, "trace-123", rec.Header().Get(traceHeader))
	})

	t.Run("generates one when missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		re := injectTrace(requestResponseStruct{req: httptest.NewRequest(http.MethodGet, "/", nil), writer: rec, logger: testLog})

		assert.NotEmpty(t, rec.Header().Get(traceHeader))
		assert.Equal(t, rec.Header().Get(traceHeader), re.req.Context().Value(config.TRACE_ID_KEY))
	})

	t.Run("nil request is rejected", func(t *testing.T) {
		re := injectTrace(requestResponseStruct{logger: testLog})
		assert.True(t, re.badRequest.isBadRequest)
		assert.Equal(t, http.StatusBadRequest, re.badRequest.httpCode)
	})
}

func TestCheckBearer(t *testing.T) {
	withToken := config.Settings{AuthToken: "s3cret"}
	tests := []struct {
		name     string
		header   string
		settings config.Settings
		want     bool
	}{
		{"valid token", "Bearer s3cret", withToken, true},
		{"wrong token", "Bearer nope", withToken, false},
		{"missing prefix", "s3cret", withToken, false},
		{"empty header", "", withToken, false},
		{"no token configured", "Bearer s3cret", config.Settings{}, false},
		{"bypass", "", config.Settings{NoAuthBypass: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkBearer(tt.header, tt.settings, testLog))
		})
	}
}

func TestRateLimiterStep(t *testing.T) {
	saved := limiterInstance
	t.Cleanup(func() { limiterInstance = saved })
	limiterInstance = NewIPRateLimiter(rate.Limit(1), 1)

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	first := rateLimiter(requestResponseStruct{req: req, logger: testLog})
	assert.False(t, first.badRequest.isBadRequest)

	second := rateLimiter(requestResponseStruct{req: req, logger: testLog})
	assert.True(t, second.badRequest.isBadRequest)
	assert.Equal(t, http.StatusTooManyRequests, second.badRequest.httpCode)
}
