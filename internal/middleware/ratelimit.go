package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TrustedProxies lists the networks whose forwarding headers are believed.
// With none configured the peer address is always the client.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts CIDRs and bare addresses.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	out := make(TrustedProxies, 0, len(entries))
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: not an address or CIDR", e)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (tp TrustedProxies) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range tp {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address. When the peer is a trusted proxy the
// headers CF-Connecting-IP, X-Real-IP and X-Forwarded-For (first hop) are
// consulted in that order; values that do not parse as an IP are ignored.
func (tp TrustedProxies) ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !tp.trusts(peer) {
		return host
	}
	for _, h := range []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"} {
		v := r.Header.Get(h)
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		if ip, err := netip.ParseAddr(strings.TrimSpace(v)); err == nil {
			return ip.Unmap().String()
		}
	}
	return host
}

// Limit allows Requests per Window for one key.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// Reset is when the current window ends.
	Reset time.Time
}

type window struct {
	count int
	ends  time.Time
}

// RateLimiter counts requests per key in fixed windows, in memory.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow counts one request for key against lim.
func (rl *RateLimiter) Allow(key string, lim Limit) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.ends) {
		w = &window{ends: now.Add(lim.Window)}
		rl.windows[key] = w
	}
	w.count++
	return Decision{
		Allowed:   w.count <= lim.Requests,
		Remaining: max(lim.Requests-w.count, 0),
		Reset:     w.ends,
	}
}

// Cleanup drops finished windows and reports how many it removed.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, w := range rl.windows {
		if !now.Before(w.ends) {
			delete(rl.windows, key)
			removed++
		}
	}
	return removed
}

// RateLimit limits requests per client IP, as resolved by proxies. Routes
// sharing a scope share a budget. Rejected requests get 429 with Retry-After
// in whole seconds.
func RateLimit(limiter *RateLimiter, proxies TrustedProxies, scope string, lim Limit) func(http.Handler) http.Handler {
	limit := strconv.Itoa(lim.Requests)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := limiter.Allow(scope+"|"+proxies.ClientIP(r), lim)
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				wait := d.Reset.Sub(limiter.now())
				secs := int((wait + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
