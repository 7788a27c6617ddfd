package remote

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/textproto"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// retryConfig controls exponential backoff for FTP operations.
type retryConfig struct {
	// attempts is the total number of tries, including the first.
	attempts int
	initial  time.Duration
	max      time.Duration
	mult     float64
	// jitter is a ± fraction of the computed delay.
	jitter float64
}

func defaultRetry() retryConfig {
	return retryConfig{
		attempts: 3,
		initial:  500 * time.Millisecond,
		max:      15 * time.Second,
		mult:     2.0,
		jitter:   0.25,
	}
}

// withRetry runs fn until it succeeds, the error is permanent, the context is
// canceled, or attempts are exhausted.
func withRetry(ctx context.Context, cfg retryConfig, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt >= cfg.attempts-1 {
			break
		}

		delay := backoff(attempt, cfg)
		zap.L().Warn("retrying ftp operation",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

func backoff(attempt int, cfg retryConfig) time.Duration {
	d := float64(cfg.initial) * math.Pow(cfg.mult, float64(attempt))
	if d > float64(cfg.max) {
		d = float64(cfg.max)
	}
	if cfg.jitter > 0 {
		d += d * cfg.jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(d)
}

// isTransient reports whether an FTP failure is worth retrying: network
// timeouts, dropped connections, and 4xx transient server replies. FTP
// permanent failures carry 5xx reply codes, the inverse of HTTP.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var proto *textproto.Error
	if errors.As(err, &proto) {
		return proto.Code >= 400 && proto.Code < 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
