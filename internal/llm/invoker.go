package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/chainlabs/questline/internal/retry"
)

// Breaker keys, one per logical conversation flow so a failing flow does
// not trip the others.
const (
	FlowGoal    = "llm:goal"
	FlowClarify = "llm:clarify"
	FlowChat    = "llm:chat"
)

// Invoker wraps a Completer with the shared retry/breaker policy. One
// instance is shared by all flows; the flow name selects the breaker key.
type Invoker struct {
	completer Completer
	breaker   *retry.Breaker
	cfg       retry.Config
	logger    *zap.Logger
}

// NewInvoker creates an Invoker. Zero-value config fields fall back to the
// retry defaults; a nil breaker gets the default process-wide breaker.
func NewInvoker(completer Completer, breaker *retry.Breaker, cfg retry.Config, logger *zap.Logger) *Invoker {
	if cfg.MaxAttempts == 0 {
		cfg = retry.DefaultConfig()
	}
	if breaker == nil {
		breaker = retry.NewBreaker(retry.DefaultFailureThreshold, retry.DefaultRecoveryTime)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{completer: completer, breaker: breaker, cfg: cfg, logger: logger}
}

// Invoke obtains a completion for the given flow. It returns the raw
// assistant text; a *retry.BreakerOpenError when the flow's circuit is
// open; or an *InvokeError once the retry budget is exhausted or the
// provider answers with a non-retryable failure.
func (i *Invoker) Invoke(ctx context.Context, flow string, messages []Message) (string, error) {
	text, err := retry.Do(ctx, retry.Options{
		Name:       flow,
		Config:     i.cfg,
		Logger:     i.logger,
		Breaker:    i.breaker,
		BreakerKey: flow,
		Fatal:      IsFatal,
	}, func(ctx context.Context) (string, error) {
		return i.completer.Complete(ctx, messages)
	})
	if err != nil {
		if _, ok := err.(*retry.BreakerOpenError); ok {
			return "", err
		}
		return "", &InvokeError{Flow: flow, Err: err}
	}
	return text, nil
}
