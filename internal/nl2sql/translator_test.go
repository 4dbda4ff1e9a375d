package nl2sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type stubTranslator struct {
	calls  int
	result Result
	err    error
	last   Request
}

func (s *stubTranslator) Translate(_ context.Context, req Request) (Result, error) {
	s.calls++
	s.last = req
	return s.result, s.err
}

func TestServiceSkipsBlankUtterance(t *testing.T) {
	stub := &stubTranslator{}
	service := NewService(stub, nil)
	for _, input := range []string{"", "   ", "\n\t"} {
		sql, ok := service.Translate(context.Background(), input, time.Now())
		if ok || sql != "" {
			t.Fatalf("Translate(%q) = %q, %v", input, sql, ok)
		}
	}
	if stub.calls != 0 {
		t.Fatalf("translator called %d times for blank input", stub.calls)
	}
}

func TestServiceReturnsSQL(t *testing.T) {
	stub := &stubTranslator{result: Result{SQL: "SELECT 150", Model: "m"}}
	service := NewService(stub, nil)
	today := time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)

	sql, ok := service.Translate(context.Background(), "  сколько видео?  ", today)
	if !ok || sql != "SELECT 150" {
		t.Fatalf("Translate() = %q, %v", sql, ok)
	}
	if stub.last.Utterance != "сколько видео?" || !stub.last.Today.Equal(today) {
		t.Fatalf("request = %+v", stub.last)
	}
}

func TestServiceLogsFailureWithUtterance(t *testing.T) {
	stub := &stubTranslator{err: errors.New("upstream unavailable")}
	var logs bytes.Buffer
	service := NewService(stub, slog.New(slog.NewTextHandler(&logs, nil)))

	sql, ok := service.Translate(context.Background(), "сколько лайков?", time.Now())
	if ok || sql != "" {
		t.Fatalf("Translate() = %q, %v", sql, ok)
	}
	out := logs.String()
	if !strings.Contains(out, "sql generation failed") || !strings.Contains(out, "сколько лайков?") || !strings.Contains(out, "upstream unavailable") {
		t.Fatalf("unexpected logs: %s", out)
	}
}
