package cmd

import (
	"io"
	"sync"
	"time"

	"github.com/habedi/petcli/client"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// transfer shows a progress bar for photo uploads and downloads, optionally
// capped by a rate limiter. A request that is retried after a token refresh
// streams its body again, so every call of wrap starts a fresh bar.
type transfer struct {
	description string
	out         io.Writer
	limiter     *client.RateLimiter

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// newTransfer returns a transfer writing its bar to out. kibPerSecond <= 0
// means no limit.
func newTransfer(description string, out io.Writer, kibPerSecond int) *transfer {
	return &transfer{
		description: description,
		out:         out,
		limiter:     client.NewRateLimiter(int64(kibPerSecond) * 1024),
	}
}

// wrap has the shape of client.ProgressFunc.
func (t *transfer) wrap(r io.Reader, size int64) io.Reader {
	bar := progressbar.NewOptions64(
		size, // -1 shows a spinner
		progressbar.OptionSetDescription(t.description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetPredictTime(false),
	)

	t.mu.Lock()
	if t.bar != nil {
		_ = t.bar.Exit()
	}
	t.bar = bar
	t.mu.Unlock()

	return io.TeeReader(t.limiter.Wrap(r), bar)
}

// finish completes the current bar, if any.
func (t *transfer) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar == nil {
		return
	}
	if err := t.bar.Finish(); err != nil {
		log.Debug().Err(err).Msg("Failed to finish progress bar")
	}
	t.bar = nil
}
