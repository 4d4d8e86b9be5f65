package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/chainlabs/questline/internal/retry"
)

type fakeCompleter struct {
	calls     int
	failUntil int
	err       error
	text      string
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	f.calls++
	if f.calls <= f.failUntil {
		return "", f.err
	}
	return f.text, nil
}

func testInvoker(c Completer, breaker *retry.Breaker) *Invoker {
	cfg := retry.DefaultConfig()
	cfg.BaseDelay = 0
	cfg.Jitter = 0
	return NewInvoker(c, breaker, cfg, nil)
}

func TestInvoker_Success(t *testing.T) {
	fake := &fakeCompleter{text: "```json\n{\"reply\":\"hi\"}\n```"}
	inv := testInvoker(fake, nil)

	text, err := inv.Invoke(context.Background(), FlowChat, []Message{User("hello")})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if text != fake.text {
		t.Errorf("Invoke() = %q, want %q", text, fake.text)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
}

func TestInvoker_RetriesThenSucceeds(t *testing.T) {
	fake := &fakeCompleter{failUntil: 2, err: errors.New("upstream flake"), text: "ok"}
	inv := testInvoker(fake, nil)

	text, err := inv.Invoke(context.Background(), FlowGoal, []Message{User("goal")})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if text != "ok" {
		t.Errorf("Invoke() = %q, want %q", text, "ok")
	}
	if fake.calls != 3 {
		t.Errorf("calls = %d, want 3", fake.calls)
	}
}

func TestInvoker_ExhaustionWrapsInvokeError(t *testing.T) {
	fake := &fakeCompleter{failUntil: 10, err: errors.New("upstream down")}
	// A roomy breaker so retry exhaustion is reached before the circuit trips.
	inv := testInvoker(fake, retry.NewBreaker(10, retry.DefaultRecoveryTime))

	_, err := inv.Invoke(context.Background(), FlowClarify, []Message{User("answers")})
	var invokeErr *InvokeError
	if !errors.As(err, &invokeErr) {
		t.Fatalf("Invoke() error = %T, want *InvokeError", err)
	}
	if invokeErr.Flow != FlowClarify {
		t.Errorf("Flow = %q, want %q", invokeErr.Flow, FlowClarify)
	}
	if !errors.Is(err, fake.err) {
		t.Errorf("InvokeError does not wrap the last completer error")
	}
	if fake.calls != retry.DefaultConfig().MaxAttempts {
		t.Errorf("calls = %d, want %d", fake.calls, retry.DefaultConfig().MaxAttempts)
	}
}

func TestInvoker_FatalErrorSingleAttempt(t *testing.T) {
	cause := errors.New("401 unauthorized")
	fake := &fakeCompleter{failUntil: 10, err: NewFatalError(cause)}
	breaker := retry.NewBreaker(retry.DefaultFailureThreshold, retry.DefaultRecoveryTime)
	inv := testInvoker(fake, breaker)

	_, err := inv.Invoke(context.Background(), FlowGoal, []Message{User("goal")})
	var invokeErr *InvokeError
	if !errors.As(err, &invokeErr) {
		t.Fatalf("Invoke() error = %T, want *InvokeError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("InvokeError does not wrap the fatal cause")
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1 for a fatal provider error", fake.calls)
	}

	// Fatal answers leave the flow's circuit closed.
	fake.err = nil
	fake.failUntil = 0
	fake.text = "ok"
	if _, err := inv.Invoke(context.Background(), FlowGoal, nil); err != nil {
		t.Errorf("Invoke() after fatal error = %v, want breaker still closed", err)
	}
}

func TestInvoker_OpenBreakerPassesThrough(t *testing.T) {
	fake := &fakeCompleter{failUntil: 10, err: errors.New("upstream down")}
	breaker := retry.NewBreaker(retry.DefaultFailureThreshold, retry.DefaultRecoveryTime)
	inv := testInvoker(fake, breaker)

	// First invocation burns through the retry budget and trips the breaker.
	if _, err := inv.Invoke(context.Background(), FlowChat, nil); err == nil {
		t.Fatal("Invoke() error = nil, want error")
	}
	calls := fake.calls

	_, err := inv.Invoke(context.Background(), FlowChat, nil)
	var open *retry.BreakerOpenError
	if !errors.As(err, &open) {
		t.Fatalf("Invoke() error = %T, want *retry.BreakerOpenError", err)
	}
	if open.Key != FlowChat {
		t.Errorf("Key = %q, want %q", open.Key, FlowChat)
	}
	if fake.calls != calls {
		t.Errorf("completer called %d extra times while breaker open", fake.calls-calls)
	}
}

func TestInvoker_FlowBreakersAreIndependent(t *testing.T) {
	fake := &fakeCompleter{failUntil: retry.DefaultFailureThreshold, err: errors.New("upstream down"), text: "ok"}
	breaker := retry.NewBreaker(retry.DefaultFailureThreshold, retry.DefaultRecoveryTime)
	inv := testInvoker(fake, breaker)

	// Trip the chat flow.
	if _, err := inv.Invoke(context.Background(), FlowChat, nil); err == nil {
		t.Fatal("Invoke() error = nil, want error")
	}

	// The goal flow still works.
	text, err := inv.Invoke(context.Background(), FlowGoal, nil)
	if err != nil {
		t.Fatalf("Invoke(FlowGoal) error = %v", err)
	}
	if text != "ok" {
		t.Errorf("Invoke(FlowGoal) = %q, want %q", text, "ok")
	}
}
