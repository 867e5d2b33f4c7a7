package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/vidya/pkg/errorsx"
	"github.com/harunnryd/vidya/pkg/resilience"
)

// Chain orders reply providers primary-first and advances to the next one
// only when the current provider reports a rate limit. Any other failure is
// returned to the caller, who degrades to a fixed phrase instead of aborting
// the call.
type Chain struct {
	adapters []Adapter
	breakers []*resilience.CircuitBreaker
	logger   *slog.Logger
}

func NewChain(logger *slog.Logger, adapters ...Adapter) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	breakers := make([]*resilience.CircuitBreaker, len(adapters))
	for i := range adapters {
		breakers[i] = resilience.NewCircuitBreaker(3, 30*time.Second)
	}
	return &Chain{adapters: adapters, breakers: breakers, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Generate(ctx context.Context, req Request) (string, error) {
	if len(c.adapters) == 0 {
		return "", errorsx.New(errorsx.ReasonReply, "no reply providers configured")
	}
	var lastErr error
	for i, adapter := range c.adapters {
		var out string
		err := c.breakers[i].Execute(func() error {
			var genErr error
			out, genErr = adapter.Generate(ctx, req)
			return genErr
		})
		if err == nil {
			return out, nil
		}
		lastErr = err
		if resilience.IsRateLimit(err) || err == resilience.ErrCircuitOpen {
			c.logger.Warn("llm_provider_rate_limited",
				"provider", adapter.Name(),
				"fallback_available", i < len(c.adapters)-1,
			)
			continue
		}
		return "", errorsx.Wrap(err, errorsx.ReasonReply)
	}
	return "", errorsx.Wrap(lastErr, errorsx.ReasonReplyRateLimit)
}

var _ Adapter = (*Chain)(nil)
