package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/transport"
	"github.com/go-chi/httprate"
	"golang.org/x/time/rate"
)

// RateLimit limits requests by client IP over a fixed window.
func RateLimit(requests int, window time.Duration) func(next http.Handler) http.Handler {
	if window <= 0 {
		window = time.Minute
	}
	return httprate.LimitByIP(requests, window)
}

// SendLimiter is a token bucket per authenticated user, applied to message writes.
type SendLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewSendLimiter(perMinute int) *SendLimiter {
	if perMinute <= 0 {
		perMinute = 120
	}
	burst := perMinute / 6
	if burst < 1 {
		burst = 1
	}
	return &SendLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

func (l *SendLimiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.limiters[userID]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = e
	}
	e.lastSeen = now

	if len(l.limiters) > 1024 {
		for id, other := range l.limiters {
			if now.Sub(other.lastSeen) > l.idleTTL {
				delete(l.limiters, id)
			}
		}
	}

	return e.lim.AllowN(now, 1)
}

func (l *SendLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := UserID(r.Context())
		if userID != "" && !l.Allow(userID) {
			retry := time.Duration(float64(time.Second) / float64(l.limit))
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			transport.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many messages")
			return
		}
		next.ServeHTTP(w, r)
	})
}
