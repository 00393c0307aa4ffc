package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tiendacore/internal/httpx"
)

const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter tracks one token bucket per client address. Stale entries are
// swept inline on the next request instead of by a background goroutine, so
// building a router never leaks anything.
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perMin    int
	lastSweep time.Time
}

func newRateLimiter(perMin int) *rateLimiter {
	return &rateLimiter{
		visitors:  make(map[string]*visitor),
		perMin:    perMin,
		lastSweep: time.Now(),
	}
}

func (rl *rateLimiter) allow(addr string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > time.Minute {
		rl.sweepLocked(now)
		rl.lastSweep = now
	}

	v, ok := rl.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(float64(rl.perMin)/60), rl.perMin)}
		rl.visitors[addr] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func (rl *rateLimiter) sweepLocked(now time.Time) {
	for addr, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, addr)
		}
	}
}

// withRateLimit applies a per-client token bucket: perMin requests a minute
// with a burst of the same size, keyed by remote IP.
func withRateLimit(perMin int, next http.Handler) http.Handler {
	rl := newRateLimiter(perMin)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !rl.allow(host, time.Now()) {
			httpx.Error(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
