// Package bot answers chat messages with one number each.
package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vidstats/vidstats/internal/observability"
	"github.com/vidstats/vidstats/internal/query"
)

type Message struct {
	ChatID int64
	UserID int64
	Text   string
}

// Translator is satisfied by *nl2sql.Service.
type Translator interface {
	Translate(ctx context.Context, utterance string, today time.Time) (string, bool)
}

// Executor is satisfied by *query.Executor.
type Executor interface {
	Execute(ctx context.Context, sql string) query.Outcome
}

type HandlerConfig struct {
	Translator Translator
	Executor   Executor
	Limiter    RateLimiter
	Logger     *slog.Logger
	Greeting   string
	Now        func() time.Time
}

type Handler struct {
	translator Translator
	executor   Executor
	limiter    RateLimiter
	logger     *slog.Logger
	greeting   string
	now        func() time.Time
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	greeting := strings.TrimSpace(cfg.Greeting)
	if greeting == "" {
		greeting = ReplyGreeting
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		translator: cfg.Translator,
		executor:   cfg.Executor,
		limiter:    cfg.Limiter,
		logger:     logger,
		greeting:   greeting,
		now:        now,
	}
}

// Handle returns exactly one reply for msg.
func (h *Handler) Handle(ctx context.Context, msg Message) string {
	ctx, traceID := observability.EnsureTraceID(ctx)
	logger := h.logger.With("trace_id", traceID, "chat_id", msg.ChatID, "user_id", msg.UserID)

	text := strings.TrimSpace(msg.Text)
	switch commandName(text) {
	case "start":
		observability.IncrementBotMessages("start")
		return h.greeting
	case "help":
		observability.IncrementBotMessages("help")
		return ReplyHelp
	}

	if h.limiter != nil && !h.limiter.Allow(msg.ChatID) {
		observability.IncrementBotMessages("rate_limited")
		logger.Warn("chat rate limited")
		return ReplyRateLimited
	}

	if h.translator == nil {
		observability.IncrementBotMessages("not_understood")
		return ReplyNotUnderstood
	}
	sqlText, ok := h.translator.Translate(ctx, text, h.now())
	if !ok {
		observability.IncrementBotMessages("not_understood")
		return ReplyNotUnderstood
	}
	if h.executor == nil {
		observability.IncrementBotMessages("failure")
		return ReplyDatabaseError
	}

	outcome := h.executor.Execute(ctx, sqlText)
	switch outcome.Status {
	case query.StatusValue:
		observability.IncrementBotMessages("value")
		reply := outcome.Value.String()
		logger.Info("answered", "reply", reply)
		return reply
	case query.StatusEmpty:
		observability.IncrementBotMessages("empty")
		return ReplyNoData
	default:
		observability.IncrementBotMessages("failure")
		return ReplyDatabaseError
	}
}

// commandName returns "start" for "/start", "/start@vidstats_bot" or
// "/start payload", and "" for text that is not a command.
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	fields := strings.Fields(text)
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	return strings.ToLower(name)
}
