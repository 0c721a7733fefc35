package middleware

import (
	"sync"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"golang.org/x/time/rate"
)

var limiterInstance = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address. Buckets idle past idleTTL are
// swept once the map grows beyond maxTracked.
type IPRateLimiter struct {
	visitors   map[string]*visitor
	mu         sync.Mutex
	rateLimit  rate.Limit
	burstRate  int
	idleTTL    time.Duration
	maxTracked int
	now        func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors:   make(map[string]*visitor),
		rateLimit:  r,
		burstRate:  b,
		idleTTL:    config.RateLimiterIdleTTL,
		maxTracked: config.RateLimiterMaxTracked,
		now:        time.Now,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	v, exists := i.visitors[ip]
	if !exists {
		if len(i.visitors) >= i.maxTracked {
			i.sweep(now)
		}
		v = &visitor{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Tracked reports how many client buckets are held.
func (i *IPRateLimiter) Tracked() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.visitors)
}

// caller holds mu
func (i *IPRateLimiter) sweep(now time.Time) {
	for ip, v := range i.visitors {
		if now.Sub(v.lastSeen) > i.idleTTL {
			delete(i.visitors, ip)
		}
	}
}
