package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	signatureHeader = "X-Webhook-Signature"

	defaultRateLimitPerWindow = 100
	defaultRateLimitWindow    = time.Minute
)

func webhookSecret() string {
	return os.Getenv("LEADFLOW_WEBHOOK_SECRET")
}

// verifySignature reads the request body and checks its HMAC-SHA256 signature
// against the shared secret. With no secret configured the check is skipped
// outside production.
func verifySignature(r *http.Request, secretKey string, signatureHeaderName string) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	if secretKey == "" {
		if os.Getenv("LEADFLOW_ENV") == "production" {
			return nil, fmt.Errorf("webhook secret is required in production mode")
		}
		return body, nil
	}

	signature := r.Header.Get(signatureHeaderName)
	if signature == "" {
		return nil, fmt.Errorf("missing signature header: %s", signatureHeaderName)
	}

	parts := strings.SplitN(signature, "=", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "sha256" {
		return nil, fmt.Errorf("invalid signature format in header %s", signatureHeaderName)
	}
	expectedSignatureHex := parts[1]

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(body)
	computedSignatureHex := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computedSignatureHex), []byte(expectedSignatureHex)) {
		return nil, fmt.Errorf("signature mismatch")
	}

	return body, nil
}

// RateLimiter is a sliding-window per-IP request limiter.
type RateLimiter struct {
	mu       sync.RWMutex
	limit    int
	window   time.Duration
	requests map[string][]time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		requests: make(map[string][]time.Time),
	}
}

// Allow reports whether a request from ip fits in the current window.
func (rl *RateLimiter) Allow(ip string) bool {
	if rl.limit <= 0 {
		return false
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	recent := rl.requests[ip][:0]
	for _, ts := range rl.requests[ip] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= rl.limit {
		rl.requests[ip] = recent
		return false
	}

	rl.requests[ip] = append(recent, now)

	// Opportunistic cleanup so the map does not grow with every IP ever seen
	if len(rl.requests)%128 == 0 {
		rl.cleanupLocked(cutoff)
	}
	return true
}

// cleanupLocked drops IPs with no requests inside the window. Caller holds
// the write lock.
func (rl *RateLimiter) cleanupLocked(cutoff time.Time) {
	for ip, timestamps := range rl.requests {
		expired := true
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				expired = false
				break
			}
		}
		if expired {
			delete(rl.requests, ip)
		}
	}
}
