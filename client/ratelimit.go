package client

import (
	"io"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by the readers it wraps. It caps photo
// transfers at a number of bytes per second.
type RateLimiter struct {
	mu     sync.Mutex
	rate   int64   // bytes per second
	tokens float64 // currently available bytes
	last   time.Time
}

// NewRateLimiter returns a limiter for bytesPerSecond, or nil when the value
// is not positive (no limit).
func NewRateLimiter(bytesPerSecond int64) *RateLimiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	return &RateLimiter{rate: bytesPerSecond, tokens: float64(bytesPerSecond), last: time.Now()}
}

// Wrap returns r limited by l. A nil limiter returns r unchanged.
func (l *RateLimiter) Wrap(r io.Reader) io.Reader {
	if l == nil {
		return r
	}
	return &limitedReader{under: r, lim: l}
}

// take blocks until at least one byte may be read and returns how many.
func (l *RateLimiter) take(want int) int {
	for {
		l.mu.Lock()
		if l.rate <= 0 {
			l.mu.Unlock()
			return want
		}
		now := time.Now()
		if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
			l.tokens += elapsed * float64(l.rate)
			if maxTokens := float64(l.rate); l.tokens > maxTokens {
				l.tokens = maxTokens
			}
			l.last = now
		}
		allowed := int(l.tokens)
		rate := l.rate
		l.mu.Unlock()

		if allowed > 0 {
			return min(want, allowed)
		}
		time.Sleep(time.Duration(float64(time.Second) / float64(rate)))
	}
}

func (l *RateLimiter) consume(n int) {
	l.mu.Lock()
	l.tokens -= float64(n)
	l.mu.Unlock()
}

type limitedReader struct {
	under io.Reader
	lim   *RateLimiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return lr.under.Read(p)
	}
	allowed := lr.lim.take(len(p))
	n, err := lr.under.Read(p[:allowed])
	if n > 0 {
		lr.lim.consume(n)
	}
	return n, err
}
