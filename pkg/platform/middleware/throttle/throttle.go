// Package throttle rate-limits write traffic per client using a sliding
// window. Scanner guns double-fire and misbehaving devices loop; the
// limiter sheds that load before it reaches the stores.
package throttle

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	dErrors "headcount/pkg/domain-errors"
	"headcount/pkg/platform/httputil"
	"headcount/pkg/requestcontext"
)

// Result reports a limit decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a sliding-window counter keyed by client. The window bounds
// memory per key; idle keys are dropped on their next touch.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*slidingWindow
}

type slidingWindow struct {
	timestamps []time.Time
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*slidingWindow),
	}
}

// Allow records one request for key and reports whether it fit the window.
func (l *Limiter) Allow(key string, now time.Time) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	sw := l.buckets[key]
	if sw == nil {
		sw = &slidingWindow{}
		l.buckets[key] = sw
	}
	sw.cleanup(now.Add(-l.window))

	if len(sw.timestamps) >= l.limit {
		return Result{Allowed: false, ResetAt: sw.timestamps[0].Add(l.window)}
	}

	sw.timestamps = append(sw.timestamps, now)
	return Result{
		Allowed:   true,
		Remaining: l.limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(l.window),
	}
}

func (sw *slidingWindow) cleanup(cutoff time.Time) {
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// Middleware limits requests per authenticated user, falling back to the
// client address for unauthenticated traffic. Denied requests get a 429
// with Retry-After.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if userID := requestcontext.UserID(r.Context()); !userID.IsNil() {
				key = userID.String()
			}

			now := requestcontext.Now(r.Context())
			result := limiter.Allow(key, now)
			if !result.Allowed {
				retry := int(result.ResetAt.Sub(now).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded, slow down"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
