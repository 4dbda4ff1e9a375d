package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

type RunnerConfig struct {
	Transport     Transport
	Handler       *Handler
	Logger        *slog.Logger
	MaxConcurrent int
	HandleTimeout time.Duration
	SendTimeout   time.Duration
}

// Runner handles each inbound message on its own goroutine, at most
// MaxConcurrent at a time, and sends one reply per message.
type Runner struct {
	transport     Transport
	handler       *Handler
	logger        *slog.Logger
	slots         chan struct{}
	handleTimeout time.Duration
	sendTimeout   time.Duration
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	handleTimeout := cfg.HandleTimeout
	if handleTimeout <= 0 {
		handleTimeout = 45 * time.Second
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Runner{
		transport:     cfg.Transport,
		handler:       cfg.Handler,
		logger:        logger,
		slots:         make(chan struct{}, maxConcurrent),
		handleTimeout: handleTimeout,
		sendTimeout:   sendTimeout,
	}, nil
}

// Run blocks until ctx is done or the transport closes its updates, then
// waits for in-flight messages to be answered.
func (r *Runner) Run(ctx context.Context) error {
	updates, err := r.transport.Updates(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to updates: %w", err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case r.slots <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-r.slots }()
				r.process(ctx, msg)
			}()
		}
	}
}

func (r *Runner) process(ctx context.Context, msg Message) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("message handler panicked", "chat_id", msg.ChatID, "panic", recovered)
		}
	}()

	handleCtx, cancel := context.WithTimeout(ctx, r.handleTimeout)
	reply := r.handler.Handle(handleCtx, msg)
	cancel()

	// Replies to accepted messages still go out during shutdown.
	sendCtx, cancelSend := context.WithTimeout(context.WithoutCancel(ctx), r.sendTimeout)
	defer cancelSend()
	if err := r.transport.Send(sendCtx, msg.ChatID, reply); err != nil {
		r.logger.Error("send reply failed", "chat_id", msg.ChatID, "error", err)
	}
}
