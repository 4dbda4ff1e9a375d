package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

var ErrPoolClosed = errors.New("store pool is closed")

type OpenFunc func(ctx context.Context) (*sql.DB, error)

// Pool owns the process-wide database handle. It is either attached to an
// already opened handle at startup or opens lazily on first use; concurrent
// first callers share a single open.
type Pool struct {
	open OpenFunc

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

func NewPool(open OpenFunc) *Pool {
	return &Pool{open: open}
}

func Attach(db *sql.DB) *Pool {
	return &Pool{db: db}
}

func (p *Pool) Get(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.db != nil {
		return p.db, nil
	}
	if p.open == nil {
		return nil, fmt.Errorf("store pool has no opener")
	}
	db, err := p.open(ctx)
	if err != nil {
		return nil, err
	}
	p.db = db
	return db, nil
}

func (p *Pool) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}
	return db.QueryContext(ctx, query, args...)
}

func (p *Pool) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	db, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}
	return db.BeginTx(ctx, opts)
}

func (p *Pool) HealthCheck(ctx context.Context) error {
	db, err := p.Get(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store db: %w", err)
	}
	return nil
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
