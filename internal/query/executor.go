package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vidstats/vidstats/internal/observability"
)

var ErrEmptySQL = errors.New("sql is required")

// DB is the subset of *sql.DB the executor needs. store.Pool satisfies it
// as well, opening its handle on first use.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type Status string

const (
	StatusValue   Status = "value"
	StatusEmpty   Status = "empty"
	StatusFailure Status = "failure"
)

// Outcome is the result of running one statement. Empty means the query ran
// but produced nothing to report; Failure means the store rejected it.
type Outcome struct {
	Status Status
	Value  Number
	Err    error
}

func ValueOutcome(n Number) Outcome    { return Outcome{Status: StatusValue, Value: n} }
func EmptyOutcome() Outcome            { return Outcome{Status: StatusEmpty} }
func FailureOutcome(err error) Outcome { return Outcome{Status: StatusFailure, Err: err} }

type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute sql: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

type ExecutorConfig struct {
	Timeout time.Duration
	// ReadOnly runs each statement inside a read-only transaction that is
	// always rolled back.
	ReadOnly bool
	Logger   *slog.Logger
}

type Executor struct {
	db       DB
	timeout  time.Duration
	readOnly bool
	log      *slog.Logger
}

func NewExecutor(db DB, cfg ExecutorConfig) (*Executor, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{db: db, timeout: timeout, readOnly: cfg.ReadOnly, log: logger}, nil
}

// Execute runs sqlText and reads at most one row and one column from it.
// It never returns a raw error: failures are reported as StatusFailure.
func (e *Executor) Execute(ctx context.Context, sqlText string) Outcome {
	start := time.Now()
	outcome := e.execute(ctx, strings.TrimSpace(sqlText))
	observability.ObserveQueryExecution(string(outcome.Status), time.Since(start))
	return outcome
}

func (e *Executor) execute(ctx context.Context, sqlText string) Outcome {
	traceID := slog.String("trace_id", observability.TraceIDFromContext(ctx))
	if sqlText == "" {
		e.log.ErrorContext(ctx, "sql execution failed",
			traceID,
			slog.String("sql", sqlText),
			slog.Any("error", ErrEmptySQL),
		)
		return FailureOutcome(&ExecutionError{SQL: sqlText, Err: ErrEmptySQL})
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.log.InfoContext(ctx, "executing sql", traceID, slog.String("sql", sqlText))
	scalar, err := e.fetchScalar(ctx, sqlText)
	if err != nil {
		e.log.ErrorContext(ctx, "sql execution failed",
			traceID,
			slog.String("sql", sqlText),
			slog.Any("error", err),
		)
		return FailureOutcome(&ExecutionError{SQL: sqlText, Err: err})
	}
	if scalar.IsNull() {
		return EmptyOutcome()
	}

	number, ok := Coerce(scalar)
	if !ok {
		e.log.WarnContext(ctx, "sql returned non-numeric value",
			traceID,
			slog.String("sql", sqlText),
			slog.String("kind", scalar.Kind.String()),
			slog.String("value", scalar.String()),
		)
		return EmptyOutcome()
	}
	return ValueOutcome(number)
}

func (e *Executor) fetchScalar(ctx context.Context, sqlText string) (Scalar, error) {
	if !e.readOnly {
		return e.scan(ctx, e.db, sqlText)
	}

	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Scalar{}, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return e.scan(ctx, tx, sqlText)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (e *Executor) scan(ctx context.Context, q queryer, sqlText string) (Scalar, error) {
	rows, err := q.QueryContext(ctx, sqlText)
	if err != nil {
		return Scalar{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Scalar{}, fmt.Errorf("query columns: %w", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Scalar{}, fmt.Errorf("iterate rows: %w", err)
		}
		return NullScalar(), nil
	}
	if len(columns) == 0 {
		return NullScalar(), nil
	}
	if len(columns) > 1 {
		e.log.DebugContext(ctx, "query returned more than one column; using the first",
			slog.Int("columns", len(columns)),
		)
	}

	values := make([]any, len(columns))
	targets := make([]any, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}
	if err := rows.Scan(targets...); err != nil {
		return Scalar{}, fmt.Errorf("scan row: %w", err)
	}
	return ScalarFromDriver(values[0]), nil
}
