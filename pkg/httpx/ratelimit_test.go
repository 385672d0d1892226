package httpx_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/cityauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(t *testing.T, h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	extract := func(remote string, headers ...string) string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		for i := 0; i+1 < len(headers); i += 2 {
			req.Header.Add(headers[i], headers[i+1])
		}
		return httpx.IPKeyExtractor(req)
	}

	t.Run("remote addr", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", extract("192.168.1.1:12345"))
	})

	t.Run("forwarding headers ignored without trusted proxies", func(t *testing.T) {
		require.NoError(t, httpx.SetTrustedProxies(nil))

		require.Equal(t, "198.51.100.7", extract("198.51.100.7:1", "X-Forwarded-For", "203.0.113.1"))
		require.Equal(t, "198.51.100.7", extract("198.51.100.7:1", "X-Real-IP", "203.0.113.2"))
	})

	t.Run("trusted proxy", func(t *testing.T) {
		require.NoError(t, httpx.SetTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"}))
		t.Cleanup(func() { _ = httpx.SetTrustedProxies(nil) })

		require.Equal(t, "203.0.113.1", extract("10.1.2.3:1", "X-Forwarded-For", "203.0.113.1"))
		require.Equal(t, "203.0.113.2", extract("192.168.1.1:1", "X-Real-IP", "203.0.113.2"))

		// A spoofed leftmost hop does not change the key.
		require.Equal(t, "203.0.113.1", extract("10.1.2.3:1", "X-Forwarded-For", "6.6.6.6, 203.0.113.1, 10.9.9.9"))
		require.Equal(t, "203.0.113.1", extract("10.1.2.3:1",
			"X-Forwarded-For", "6.6.6.6",
			"X-Forwarded-For", "203.0.113.1",
		))

		// Untrusted peers cannot claim an address.
		require.Equal(t, "198.51.100.7", extract("198.51.100.7:1", "X-Forwarded-For", "203.0.113.1"))
	})
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := httpx.ParseTrustedProxies([]string{" 10.0.0.0/8 ", "", "192.168.1.1", "::1"})
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	require.Equal(t, 32, prefixes[1].Bits())
	require.Equal(t, 128, prefixes[2].Bits())

	_, err = httpx.ParseTrustedProxies([]string{"not-an-ip"})
	require.Error(t, err)
	_, err = httpx.ParseTrustedProxies([]string{"10.0.0.0/99"})
	require.Error(t, err)
}

func TestRateLimitByIP_SpoofedHeader(t *testing.T) {
	require.NoError(t, httpx.SetTrustedProxies(nil))

	h := httpx.RateLimitByIP(httpx.RateLimitConfig{
		RequestsPerWindow: 1, Window: time.Minute, Burst: 1,
	})(okHandler)

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:1"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("203.0.113.1"))
	require.Equal(t, http.StatusTooManyRequests, send("203.0.113.2"))
}

func TestCompositeKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	extract := httpx.CompositeKeyExtractor(":", httpx.UserIDKeyExtractor, httpx.IPKeyExtractor)
	require.Equal(t, "192.168.1.1", extract(req))

	req = req.WithContext(httpx.WithPrincipal(req.Context(), httpx.Principal{UserID: "u1"}))
	require.Equal(t, "u1:192.168.1.1", extract(req))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows requests under limit", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			RequestsPerWindow: 5, Window: time.Second, Burst: 5,
		}, httpx.IPKeyExtractor)(okHandler)

		for i := range 5 {
			require.Equal(t, http.StatusOK, hit(t, h, "192.168.1.1:1").Code, "request %d", i+1)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			RequestsPerWindow: 3, Window: time.Minute, Burst: 3,
		}, httpx.IPKeyExtractor)(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, hit(t, h, "192.168.1.1:1").Code)
		}
		rec := hit(t, h, "192.168.1.1:1")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("keys are tracked separately", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{
			RequestsPerWindow: 2, Window: time.Minute, Burst: 2,
		})(okHandler)

		for range 2 {
			require.Equal(t, http.StatusOK, hit(t, h, "192.168.1.1:1").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, hit(t, h, "192.168.1.1:1").Code)
		require.Equal(t, http.StatusOK, hit(t, h, "192.168.1.2:1").Code)
	})

	t.Run("empty key is not limited", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			RequestsPerWindow: 1, Window: time.Minute, Burst: 1,
		}, func(*http.Request) string { return "" })(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, hit(t, h, "192.168.1.1:1").Code)
		}
	})

	t.Run("by user", func(t *testing.T) {
		h := httpx.RateLimitByUser(httpx.RateLimitConfig{
			RequestsPerWindow: 1, Window: time.Minute, Burst: 1,
		})(okHandler)

		as := func(user string) int {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:1"
			req = req.WithContext(httpx.WithPrincipal(req.Context(), httpx.Principal{UserID: user}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec.Code
		}

		require.Equal(t, http.StatusOK, as("alice"))
		require.Equal(t, http.StatusTooManyRequests, as("alice"))
		require.Equal(t, http.StatusOK, as("bob"))
	})
}

func TestRateLimitHeaders(t *testing.T) {
	h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
		RequestsPerWindow: 1, Window: time.Minute, Burst: 1,
	}, httpx.IPKeyExtractor)(okHandler)

	require.Equal(t, http.StatusOK, hit(t, h, "192.168.1.1:1").Code)

	rec := hit(t, h, "192.168.1.1:1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
	require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	require.Contains(t, rec.Body.String(), "error_description")
}

func TestRateLimitProfiles(t *testing.T) {
	for name, cfg := range map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
		"public":   httpx.PublicLimit,
	} {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, cfg.RequestsPerWindow)
			require.Positive(t, cfg.Window)
			require.Positive(t, cfg.Burst)
		})
	}
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	t.Run("defaults", func(t *testing.T) {
		require.Equal(t, def, httpx.ParseRateLimitFromEnv("UNSET_TEST", def))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "200")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_TEST_BURST", "250")

		require.Equal(t, httpx.RateLimitConfig{
			RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250,
		}, httpx.ParseRateLimitFromEnv("TEST", def))
	})

	t.Run("invalid values keep defaults", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "invalid")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "-10")
		t.Setenv("RATELIMIT_TEST_BURST", "0")

		require.Equal(t, def, httpx.ParseRateLimitFromEnv("TEST", def))
	})
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{
		RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000,
	})(okHandler)

	for i := 0; b.Loop(); i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = fmt.Sprintf("192.168.%d.%d:12345", i%255, (i/255)%255)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
