// Package duckdb serves the two tables from the Parquet archive in an
// in-memory DuckDB database, so the bot can answer questions without
// PostgreSQL.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/vidstats/vidstats/internal/catalog"
	"github.com/vidstats/vidstats/internal/storage"
)

// Open downloads the archive under prefix and materializes it as the videos
// and video_snapshots tables. Archive timestamps (unix microseconds) become
// TIMESTAMP columns under their original names.
func Open(ctx context.Context, store storage.ObjectStore, prefix string) (*sql.DB, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	workDir, err := os.MkdirTemp("", "vidstats-archive-")
	if err != nil {
		return nil, fmt.Errorf("create archive temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	tables := []struct {
		name    string
		columns string
	}{
		{name: catalog.TableVideos, columns: videosSelect},
		{name: catalog.TableSnapshots, columns: snapshotsSelect},
	}

	localPaths := make(map[string]string, len(tables))
	for _, table := range tables {
		key, err := storage.ArchiveKey(prefix, table.name)
		if err != nil {
			return nil, err
		}
		localPath := filepath.Join(workDir, table.name+".parquet")
		if err := download(ctx, store, key, localPath); err != nil {
			return nil, err
		}
		localPaths[table.name] = localPath
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	// Each pooled connection to an in-memory DSN would see its own empty
	// database.
	db.SetMaxOpenConns(1)

	for _, table := range tables {
		stmt := fmt.Sprintf("CREATE TABLE %s AS %s FROM read_parquet(%s)", table.name, table.columns, quoteString(localPaths[table.name]))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("load table %q: %w", table.name, err)
		}
	}
	return db, nil
}

const videosSelect = `SELECT
	id,
	creator_id,
	make_timestamp(video_created_at_us) AS video_created_at,
	views_count,
	likes_count,
	comments_count,
	reports_count,
	make_timestamp(created_at_us) AS created_at,
	make_timestamp(updated_at_us) AS updated_at`

const snapshotsSelect = `SELECT
	id,
	video_id,
	views_count,
	likes_count,
	comments_count,
	reports_count,
	delta_views_count,
	delta_likes_count,
	delta_comments_count,
	delta_reports_count,
	make_timestamp(created_at_us) AS created_at,
	make_timestamp(updated_at_us) AS updated_at`

func download(ctx context.Context, store storage.ObjectStore, key, localPath string) error {
	reader, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get archive object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file %q: %w", localPath, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return fmt.Errorf("write local file %q: %w", localPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close local file %q: %w", localPath, err)
	}
	return nil
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
