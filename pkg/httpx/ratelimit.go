package httpx

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/cityauth/pkg/slogx"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines a token bucket: RequestsPerWindow tokens refill
// evenly over Window, and at most Burst are held at once.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Profiles used by the router. Each can be overridden with
// RATELIMIT_{STRICT,MODERATE,LENIENT,PUBLIC}_{REQUESTS,WINDOW_SEC,BURST}.
var (
	// StrictLimit guards credential endpoints against brute force.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit is for authenticated operations.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit is for health probes and other cheap reads.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit is for unauthenticated documentation and metrics.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv overlays RATELIMIT_{prefix}_REQUESTS,
// RATELIMIT_{prefix}_WINDOW_SEC and RATELIMIT_{prefix}_BURST onto def.
// Missing, malformed or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// KeyExtractor picks the bucket a request is charged to. An empty key
// skips limiting.
type KeyExtractor func(*http.Request) string

// trustedProxies holds the networks whose forwarding headers are believed.
var trustedProxies atomic.Pointer[[]netip.Prefix]

// SetTrustedProxies replaces the proxy allow list with cidrs. A bare address
// is taken as a single host. With an empty list forwarding headers are
// ignored and the peer address is always used.
func SetTrustedProxies(cidrs []string) error {
	prefixes, err := ParseTrustedProxies(cidrs)
	if err != nil {
		return err
	}
	trustedProxies.Store(&prefixes)
	return nil
}

// ParseTrustedProxies parses CIDRs or bare addresses, skipping blanks.
func ParseTrustedProxies(cidrs []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !strings.Contains(c, "/") {
			addr, err := netip.ParseAddr(c)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", c, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", c, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}

func isTrustedProxy(ip string) bool {
	list := trustedProxies.Load()
	if list == nil || len(*list) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range *list {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IPKeyExtractor uses the client address. X-Forwarded-For and X-Real-IP
// are only honoured when the peer is a trusted proxy; X-Forwarded-For is
// walked from the right and the first hop that is not a trusted proxy wins.
func IPKeyExtractor(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !isTrustedProxy(peer) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrustedProxy(hop) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

// UserIDKeyExtractor uses the authenticated principal's user id.
func UserIDKeyExtractor(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p.UserID
	}
	return ""
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// rateLimiter keeps one token bucket per key. Buckets idle long enough to
// have refilled completely are indistinguishable from new ones, so the
// cache expires them after that long.
type rateLimiter struct {
	mu      sync.Mutex
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
	idle    time.Duration
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	perSecond := float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()
	idle := time.Duration(float64(cfg.Burst)/perSecond*float64(time.Second)) + time.Second

	return &rateLimiter{
		buckets: cache.New(idle, 2*idle),
		limit:   rate.Limit(perSecond),
		burst:   cfg.Burst,
		idle:    idle,
	}
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := rl.buckets.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(rl.limit, rl.burst)
	}

	// Re-setting pushes the expiry out while the key stays active.
	rl.buckets.Set(key, lim, rl.idle)
	return lim
}

// RateLimitMiddleware rejects requests beyond cfg with 429 and a
// Retry-After header. Buckets are keyed by extract.
func RateLimitMiddleware(cfg RateLimitConfig, extract KeyExtractor) Middleware {
	rl := newRateLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := extract(r)
			if key == "" {
				log.Warn("rate limit: no key for request, allowing")
				next.ServeHTTP(w, r)
				return
			}

			lim := rl.get(key)
			if lim.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			res := lim.Reserve()
			retryAfter := max(int(res.Delay().Seconds()), 1)
			res.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			log.Warn("rate limit exceeded",
				"key", key,
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)
			WriteError(w, http.StatusTooManyRequests,
				"rate_limit_exceeded", "Too many requests. Please try again later.")
		})
	}
}

// RateLimitByIP limits by client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser limits by authenticated user, falling back to the client
// address when there is none.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor,
	))
}
