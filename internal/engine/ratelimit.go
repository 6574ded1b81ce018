package engine

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps aggregate read throughput
// across all hashing and verify workers to bytesPerSec. The burst is 1 MB,
// or the rate itself when that is smaller.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20
	if bytesPerSec < int64(burst) {
		burst = int(max(bytesPerSec, 1))
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateLimitedReader wraps an io.Reader and enforces a shared rate limit.
type rateLimitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func newRateLimitedReader(
	ctx context.Context,
	r io.Reader,
	limiter *rate.Limiter,
) *rateLimitedReader {
	return &rateLimitedReader{r: r, limiter: limiter, ctx: ctx}
}

func (rl *rateLimitedReader) Read(p []byte) (int, error) {
	n, err := rl.r.Read(p)
	// WaitN rejects requests larger than the burst, so a read bigger than
	// a slow limiter's burst is paid for in pieces.
	for remaining := n; remaining > 0; {
		take := min(remaining, rl.limiter.Burst())
		if waitErr := rl.limiter.WaitN(rl.ctx, take); waitErr != nil {
			return n, waitErr
		}
		remaining -= take
	}
	return n, err
}

// throttle returns a reader wrapper bound to limiter, or nil when limiter
// is nil so callers read unthrottled.
func throttle(ctx context.Context, limiter *rate.Limiter) func(io.Reader) io.Reader {
	if limiter == nil {
		return nil
	}
	return func(r io.Reader) io.Reader {
		return newRateLimitedReader(ctx, r, limiter)
	}
}
