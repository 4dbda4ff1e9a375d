// Package nl2sql turns a Russian analytics question into one PostgreSQL
// aggregate query through an OpenAI-compatible chat model.
package nl2sql

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vidstats/vidstats/internal/observability"
)

type Request struct {
	Utterance string
	Today     time.Time
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// Service is the boundary the bot and the HTTP surface call. It never returns
// an error: any failure is logged and reported as "no translation".
type Service struct {
	translator Translator
	logger     *slog.Logger
}

func NewService(translator Translator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{translator: translator, logger: logger}
}

// Translate returns the generated SQL and true, or "" and false when the
// utterance is blank or generation failed.
func (s *Service) Translate(ctx context.Context, utterance string, today time.Time) (string, bool) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" || s.translator == nil {
		return "", false
	}

	traceID := observability.TraceIDFromContext(ctx)
	s.logger.Info("llm request received", "trace_id", traceID, "utterance", utterance)

	start := time.Now()
	result, err := s.translator.Translate(ctx, Request{Utterance: utterance, Today: today})
	if err != nil {
		observability.ObserveTranslation("error", time.Since(start))
		s.logger.Error("sql generation failed", "trace_id", traceID, "utterance", utterance, "error", err)
		return "", false
	}
	observability.ObserveTranslation("ok", time.Since(start))
	s.logger.Info("generated sql", "trace_id", traceID, "model", result.Model, "sql", result.SQL)
	return result.SQL, true
}
