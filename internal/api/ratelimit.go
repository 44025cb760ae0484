package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Traffic classes get separate buckets: a player mashing buttons must not
// starve their own state polling, and PNG frames cost a full render each.
type trafficClass uint8

const (
	classRead  trafficClass = iota // GET state, events, roster, bindings, sounds
	classInput                     // POST input, confirm, select, versus
	classFrame                     // GET /api/frame.png
	numClasses
)

func (c trafficClass) String() string {
	return [...]string{"read", "input", "frame"}[c]
}

// classify picks the bucket for a request
func classify(r *http.Request) trafficClass {
	switch {
	case r.Method == http.MethodPost:
		return classInput
	case strings.HasSuffix(r.URL.Path, "/frame.png"):
		return classFrame
	default:
		return classRead
	}
}

// RateLimitConfig configures the per-IP limiter. Zero input or frame values
// fall back to the read limits.
type RateLimitConfig struct {
	RequestsPerSecond float64 // read requests per second per IP
	Burst             int
	InputPerSecond    float64 // button edges per second per IP or connection
	InputBurst        int
	FramePerSecond    float64 // rendered frames per second per IP
	FrameBurst        int
	CleanupInterval   time.Duration // How often to clean up stale limiters
}

// DefaultRateLimitConfig suits one human player per address
var DefaultRateLimitConfig = RateLimitConfig{
	// State polling at a few Hz plus page loads
	RequestsPerSecond: 20,
	Burst:             40,
	// Press and release per button; a special motion is five edges in a few ticks
	InputPerSecond:  60,
	InputBurst:      120,
	FramePerSecond:  5,
	FrameBurst:      10,
	CleanupInterval: 5 * time.Minute,
}

// limit returns the rate and burst for a class
func (c RateLimitConfig) limit(class trafficClass) (rate.Limit, int) {
	perSec, burst := c.RequestsPerSecond, c.Burst
	switch class {
	case classInput:
		if c.InputPerSecond > 0 {
			perSec, burst = c.InputPerSecond, c.InputBurst
		}
	case classFrame:
		if c.FramePerSecond > 0 {
			perSec, burst = c.FramePerSecond, c.FrameBurst
		}
	}
	return rate.Limit(perSec), max(burst, 1)
}

// ipLimiterEntry tracks per-IP rate limiting state
type ipLimiterEntry struct {
	limiters [numClasses]*rate.Limiter
	lastSeen atomic.Int64 // unix nanos; written by concurrent requests
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	// Stats for monitoring
	allowed  [numClasses]atomic.Uint64
	rejected [numClasses]atomic.Uint64
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}

	// Start cleanup goroutine to prevent memory leak from abandoned IPs
	go rl.cleanupLoop()

	return rl
}

// Stop stops the rate limiter cleanup goroutine
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// entry returns or creates the limiters for the given IP
func (rl *IPRateLimiter) entry(ip string) *ipLimiterEntry {
	now := time.Now().UnixNano()

	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now)
		return e
	}

	e := &ipLimiterEntry{}
	for class := range e.limiters {
		e.limiters[class] = rate.NewLimiter(rl.config.limit(trafficClass(class)))
	}
	e.lastSeen.Store(now)

	actual, _ := rl.limiters.LoadOrStore(ip, e)
	return actual.(*ipLimiterEntry)
}

// cleanupLoop periodically removes stale rate limiters
func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes rate limiters that haven't been used recently
func (rl *IPRateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.CleanupInterval * 2).UnixNano()

	rl.limiters.Range(func(key, value interface{}) bool {
		if value.(*ipLimiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow checks a read request from the given IP
func (rl *IPRateLimiter) Allow(ip string) bool {
	return rl.allow(ip, classRead)
}

func (rl *IPRateLimiter) allow(ip string, class trafficClass) bool {
	if rl.entry(ip).limiters[class].Allow() {
		rl.allowed[class].Add(1)
		return true
	}
	rl.rejected[class].Add(1)
	return false
}

// Middleware returns an HTTP middleware for rate limiting
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := classify(r)
		if !rl.allow(GetClientIP(r), class) {
			RecordConnectionRejected("rate_limit_" + class.String())
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns allowed and rejected counts per traffic class
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	stats := make(map[string]uint64, 2*numClasses)
	for class := trafficClass(0); class < numClasses; class++ {
		stats[class.String()+"_allowed"] = rl.allowed[class].Load()
		stats[class.String()+"_rejected"] = rl.rejected[class].Load()
	}
	return stats
}

// NewCommandLimiter returns the input bucket for one websocket connection
func NewCommandLimiter(cfg RateLimitConfig) *rate.Limiter {
	return rate.NewLimiter(cfg.limit(classInput))
}

// GetClientIP extracts the client IP from an HTTP request
// Handles X-Forwarded-For header for proxied requests
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For for proxied requests
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take first IP (original client IP)
		// CAUTION: This can be spoofed if not behind a trusted proxy
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter limits concurrent WebSocket connections per IP
type WebSocketRateLimiter struct {
	connections sync.Map // map[string]*int32 (atomic counter)
	maxPerIP    int

	// Stats
	rejectedCount uint64 // atomic
}

// NewWebSocketRateLimiter creates a WebSocket connection limiter
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: maxPerIP}
}

// Allow checks if a new WebSocket connection from this IP is allowed
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	// Load or create counter for this IP
	actual, _ := wrl.connections.LoadOrStore(ip, new(int32))
	counter := actual.(*int32)

	// Atomically check and increment
	for {
		current := atomic.LoadInt32(counter)
		if int(current) >= wrl.maxPerIP {
			atomic.AddUint64(&wrl.rejectedCount, 1)
			return false
		}
		if atomic.CompareAndSwapInt32(counter, current, current+1) {
			return true
		}
	}
}

// Release decrements the connection count for this IP
func (wrl *WebSocketRateLimiter) Release(ip string) {
	if val, ok := wrl.connections.Load(ip); ok {
		counter := val.(*int32)
		if atomic.AddInt32(counter, -1) < 0 {
			atomic.StoreInt32(counter, 0)
		}
	}
}

// GetConnectionCount returns current connection count for an IP
func (wrl *WebSocketRateLimiter) GetConnectionCount(ip string) int {
	if val, ok := wrl.connections.Load(ip); ok {
		return int(atomic.LoadInt32(val.(*int32)))
	}
	return 0
}

// GetStats returns WebSocket rate limiter statistics
func (wrl *WebSocketRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"rejected": atomic.LoadUint64(&wrl.rejectedCount),
	}
}

// DefaultAllowedOrigins are used for CORS and WebSocket checks when none are configured.
// A trailing ":*" accepts any port.
var DefaultAllowedOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// IsAllowedOrigin checks an Origin header against a list of patterns
func IsAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, pattern := range allowed {
		if pattern == "*" || pattern == origin {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, ":*"); ok {
			rest, found := strings.CutPrefix(origin, prefix)
			if found && (rest == "" || isPort(rest)) {
				return true
			}
		}
	}
	return false
}

// isPort reports whether s is ":" followed by digits
func isPort(s string) bool {
	if len(s) < 2 || s[0] != ':' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
