package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vidstats/vidstats/internal/query"
)

type fakeTransport struct {
	updates chan Message
	mu      sync.Mutex
	sent    map[int64]string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{updates: make(chan Message), sent: map[int64]string{}}
}

func (f *fakeTransport) Updates(context.Context) (<-chan Message, error) {
	return f.updates, nil
}

func (f *fakeTransport) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[chatID] = text
	return nil
}

type blockingExecutor struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	release  chan struct{}
}

func (b *blockingExecutor) Execute(ctx context.Context, _ string) query.Outcome {
	current := b.inFlight.Add(1)
	for {
		peak := b.peak.Load()
		if current <= peak || b.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	defer b.inFlight.Add(-1)
	select {
	case <-b.release:
	case <-ctx.Done():
		return query.FailureOutcome(ctx.Err())
	}
	return query.ValueOutcome(query.IntNumber(1))
}

func TestRunnerRepliesToEveryMessage(t *testing.T) {
	transport := newFakeTransport()
	handler := NewHandler(HandlerConfig{
		Translator: &fakeTranslator{sql: "SELECT 150", ok: true},
		Executor:   &fakeExecutor{outcome: query.ValueOutcome(query.IntNumber(150))},
	})
	runner, err := NewRunner(RunnerConfig{Transport: transport, Handler: handler, MaxConcurrent: 2})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()

	transport.updates <- Message{ChatID: 1, Text: "/start"}
	transport.updates <- Message{ChatID: 2, Text: "сколько?"}
	close(transport.updates)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after updates closed")
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.sent[1] != ReplyGreeting {
		t.Fatalf("reply to chat 1 = %q", transport.sent[1])
	}
	if transport.sent[2] != "150" {
		t.Fatalf("reply to chat 2 = %q", transport.sent[2])
	}
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	transport := newFakeTransport()
	executor := &blockingExecutor{release: make(chan struct{})}
	handler := NewHandler(HandlerConfig{
		Translator: &fakeTranslator{sql: "SELECT 1", ok: true},
		Executor:   executor,
	})
	runner, err := NewRunner(RunnerConfig{Transport: transport, Handler: handler, MaxConcurrent: 2})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()

	transport.updates <- Message{ChatID: 1, Text: "a"}
	transport.updates <- Message{ChatID: 2, Text: "b"}

	third := make(chan struct{})
	go func() {
		transport.updates <- Message{ChatID: 3, Text: "c"}
		close(third)
	}()

	// The third message is received but waits for a free slot.
	time.Sleep(100 * time.Millisecond)
	if got := executor.peak.Load(); got > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", got)
	}

	close(executor.release)
	<-third
	close(transport.updates)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
	if got := executor.peak.Load(); got > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", got)
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.sent) != 3 {
		t.Fatalf("sent %d replies, want 3", len(transport.sent))
	}
}

func TestRunnerAppliesHandleTimeout(t *testing.T) {
	transport := newFakeTransport()
	executor := &blockingExecutor{release: make(chan struct{})}
	handler := NewHandler(HandlerConfig{
		Translator: &fakeTranslator{sql: "SELECT 1", ok: true},
		Executor:   executor,
	})
	runner, err := NewRunner(RunnerConfig{Transport: transport, Handler: handler, HandleTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()
	transport.updates <- Message{ChatID: 9, Text: "slow"}
	close(transport.updates)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.sent[9] != ReplyDatabaseError {
		t.Fatalf("reply = %q, want database error after timeout", transport.sent[9])
	}
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	transport := newFakeTransport()
	runner, err := NewRunner(RunnerConfig{Transport: transport, Handler: NewHandler(HandlerConfig{})})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestNewRunnerValidates(t *testing.T) {
	if _, err := NewRunner(RunnerConfig{Handler: NewHandler(HandlerConfig{})}); err == nil {
		t.Fatal("expected error for missing transport")
	}
	if _, err := NewRunner(RunnerConfig{Transport: newFakeTransport()}); err == nil {
		t.Fatal("expected error for missing handler")
	}
}
