package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimited paces calls to the wrapped completer so batch runs stay under
// the provider's request quota.
type rateLimited struct {
	inner   ChatCompleter
	limiter *rate.Limiter
}

// NewRateLimited wraps a completer with a requests-per-minute limiter.
func NewRateLimited(inner ChatCompleter, perMinute float64) ChatCompleter {
	return &rateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
	}
}

func (r *rateLimited) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Complete(ctx, messages)
}
