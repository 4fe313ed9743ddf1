package conn

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimitSettings struct {
	// sustained requests per second, 0 disables the limiter
	RPS   float64
	Burst int
}

type clientLimiter struct {
	limiter   *rate.Limiter
	last_seen time.Time
}

// RateLimiter is a per client token bucket middleware. Clients are told by
// their remote address and forgotten after 10 idle minutes; the sweeper
// stops with ctx.
func RateLimiter(ctx context.Context, settings RateLimitSettings) func(http.Handler) http.Handler {
	if settings.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	var locker sync.Mutex
	clients := map[string]*clientLimiter{}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				locker.Lock()
				for ip, cl := range clients {
					if time.Since(cl.last_seen) > 10*time.Minute {
						delete(clients, ip)
					}
				}
				locker.Unlock()
			}
		}
	}()

	getLimiter := func(ip string) *rate.Limiter {
		locker.Lock()
		defer locker.Unlock()
		cl, ok := clients[ip]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(settings.RPS), settings.Burst)}
			clients[ip] = cl
		}
		cl.last_seen = time.Now()
		return cl.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := getLimiter(clientIP(r))

			reservation := limiter.Reserve()
			if !reservation.OK() {
				writeTooManyRequests(w, 0)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				writeTooManyRequests(w, int(delay.Seconds())+1)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(settings.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// Only RemoteAddr is used, X-Forwarded-For can be spoofed.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeTooManyRequests(w http.ResponseWriter, retry_after int) {
	if retry_after > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retry_after))
	}
	NewErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").WriteHTTP(w)
}
