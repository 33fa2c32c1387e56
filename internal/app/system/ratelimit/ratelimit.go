// internal/app/system/ratelimit/ratelimit.go

// Package ratelimit provides a sliding-window rate limiter for the
// credential endpoints (login, forgot-password).
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts requests per key over a fixed window. Safe for concurrent
// use. Expired windows are swept opportunistically during Allow, so a
// limiter holds no background goroutine and can be dropped freely.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	duration  time.Duration
	nextSweep time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per duration for each key.
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		windows:   make(map[string]*window),
		limit:     limit,
		duration:  duration,
		nextSweep: time.Now().Add(duration * 2),
	}
}

// Allow records a request for key and reports whether it is within the
// limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset clears the window for key. Called after a successful login so a
// legitimate user isn't still throttled by their earlier typos.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// sweep drops expired windows so long-running processes don't accumulate
// dead keys. Runs at most once per two window durations. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for key, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, key)
		}
	}
	l.nextSweep = now.Add(l.duration * 2)
}

// ClientIP extracts the client IP from a request, preferring the
// X-Forwarded-For and X-Real-IP headers set by proxies, falling back to
// RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// AttemptLimiter throttles credential attempts on two axes: per source IP to
// blunt distributed guessing, and per account email so one account can't be
// hammered from many IPs.
type AttemptLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewAttemptLimiter creates a limiter with the default credential limits:
// 10 attempts per IP per minute and 5 attempts per email per 5 minutes.
func NewAttemptLimiter() *AttemptLimiter {
	return &AttemptLimiter{
		ip:    New(10, time.Minute),
		email: New(5, 5*time.Minute),
	}
}

// Check records an attempt and reports whether it is allowed.
func (a *AttemptLimiter) Check(r *http.Request, email string) bool {
	if !a.ip.Allow(ClientIP(r)) {
		return false
	}
	if email != "" {
		return a.email.Allow(strings.ToLower(strings.TrimSpace(email)))
	}
	return true
}

// Success clears the email window after a successful attempt.
func (a *AttemptLimiter) Success(email string) {
	if email != "" {
		a.email.Reset(strings.ToLower(strings.TrimSpace(email)))
	}
}
