package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestMiddlewareLimitsPerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Every(time.Hour), 2)
	defer l.Close()

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(addr string) int {
		r := httptest.NewRequest(http.MethodPost, "/api/token", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("203.0.113.1:1000"))
	assert.Equal(t, http.StatusNoContent, call("203.0.113.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("203.0.113.1:1002"))
	assert.Equal(t, http.StatusNoContent, call("203.0.113.2:1000"))
	assert.Equal(t, 2, l.Len())
}

func TestSweepDropsIdleLimiters(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	defer l.Close()

	l.GetLimiter("idle")
	busy := l.GetLimiter("busy")
	now := time.Now()
	assert.True(t, busy.AllowN(now, 1))

	removed, remaining := l.sweep(now)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, remaining)
}

func TestCloseIsIdempotent(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	l.Close()
	l.Close()
}
