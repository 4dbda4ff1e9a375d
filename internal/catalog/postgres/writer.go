// Package postgres bulk-loads catalog rows into PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/vidstats/vidstats/internal/catalog"
)

// Writer implements catalog.Writer. On a pgx connection it streams rows with
// COPY; on any other driver it falls back to prepared INSERTs in one
// transaction.
type Writer struct {
	db *sql.DB
}

var _ catalog.Writer = (*Writer)(nil)

func NewWriter(db *sql.DB) (*Writer, error) {
	if db == nil {
		return nil, fmt.Errorf("writer db is required")
	}
	return &Writer{db: db}, nil
}

func (w *Writer) CopyVideos(ctx context.Context, videos []catalog.Video) (int64, error) {
	rows := make([][]any, 0, len(videos))
	for _, video := range videos {
		rows = append(rows, video.Values())
	}
	return w.copyRows(ctx, catalog.TableVideos, catalog.VideoColumns, rows)
}

func (w *Writer) CopySnapshots(ctx context.Context, snapshots []catalog.Snapshot) (int64, error) {
	rows := make([][]any, 0, len(snapshots))
	for _, snapshot := range snapshots {
		rows = append(rows, snapshot.Values())
	}
	return w.copyRows(ctx, catalog.TableSnapshots, catalog.SnapshotColumns, rows)
}

func (w *Writer) copyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	conn, err := w.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	var copied int64
	err = conn.Raw(func(driverConn any) error {
		pgxConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return errNotPGX
		}
		n, copyErr := pgxConn.Conn().CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		copied = n
		return copyErr
	})
	if errors.Is(err, errNotPGX) {
		return w.insertRows(ctx, conn, table, columns, rows)
	}
	if err != nil {
		return copied, fmt.Errorf("copy into %s: %w", table, err)
	}
	return copied, nil
}

var errNotPGX = errors.New("connection is not a pgx connection")

func (w *Writer) insertRows(ctx context.Context, conn *sql.Conn, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert into %s: %w", table, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, InsertStatement(table, columns))
	if err != nil {
		return 0, fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert into %s: %w", table, err)
	}
	return inserted, nil
}

// InsertStatement renders a positional INSERT for table and columns.
func InsertStatement(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
}
