package duckdb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/vidstats/vidstats/internal/archive"
	"github.com/vidstats/vidstats/internal/catalog"
	"github.com/vidstats/vidstats/internal/storage"
)

func TestOpenServesArchivedTables(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{}}
	ctx := context.Background()

	inRange := time.Date(2025, time.November, 3, 9, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2025, time.November, 7, 9, 0, 0, 0, time.UTC)
	snapshotAt := time.Date(2025, time.November, 28, 12, 0, 0, 0, time.UTC)

	_, err := archive.Export(ctx, store, "archive/latest",
		[]catalog.Video{
			{ID: "v1", CreatorID: "c1", VideoCreatedAt: &inRange, ViewsCount: 100},
			{ID: "v2", CreatorID: "c1", VideoCreatedAt: &outOfRange, ViewsCount: 50},
			{ID: "v3", CreatorID: "c2"},
		},
		[]catalog.Snapshot{
			{ID: "s1", VideoID: "v1", DeltaViewsCount: 120, CreatedAt: &snapshotAt},
			{ID: "s2", VideoID: "v2", DeltaViewsCount: 30, CreatedAt: &snapshotAt},
		},
	)
	if err != nil {
		t.Fatalf("archive.Export() error = %v", err)
	}

	db, err := Open(ctx, store, "archive/latest")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var count int64
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos WHERE creator_id = 'c1' AND video_created_at BETWEEN '2025-11-01' AND '2025-11-05 23:59:59'").Scan(&count)
	if err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	var nulls int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos WHERE video_created_at IS NULL").Scan(&nulls); err != nil {
		t.Fatalf("null query error = %v", err)
	}
	if nulls != 1 {
		t.Fatalf("null timestamps = %d, want 1", nulls)
	}

	var growth int64
	err = db.QueryRowContext(ctx, "SELECT CAST(SUM(t1.delta_views_count) AS BIGINT) FROM video_snapshots t1 JOIN videos t2 ON t1.video_id = t2.id WHERE t2.creator_id = 'c1' AND t1.created_at BETWEEN '2025-11-28 10:00:00' AND '2025-11-28 15:00:00'").Scan(&growth)
	if err != nil {
		t.Fatalf("growth query error = %v", err)
	}
	if growth != 150 {
		t.Fatalf("growth = %d, want 150", growth)
	}
}

func TestOpenFailsWhenArchiveMissing(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{}}
	_, err := Open(context.Background(), store, "archive/latest")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Open() error = %v, want ErrObjectNotFound", err)
	}
}

func TestOpenRequiresStore(t *testing.T) {
	if _, err := Open(context.Background(), nil, "archive"); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestQuoteString(t *testing.T) {
	if got := quoteString("/tmp/it's.parquet"); got != `'/tmp/it''s.parquet'` {
		t.Fatalf("quoteString() = %q", got)
	}
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}
