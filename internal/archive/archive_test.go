package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/vidstats/vidstats/internal/catalog"
	"github.com/vidstats/vidstats/internal/storage"
)

func TestEncodeVideosKeepsNullTimestamps(t *testing.T) {
	created := time.Date(2025, time.November, 1, 12, 0, 0, 0, time.UTC)
	data, err := EncodeVideos([]catalog.Video{
		{ID: "v1", CreatorID: "c1", VideoCreatedAt: &created, ViewsCount: 150},
		{ID: "v2", CreatorID: "c2"},
	})
	if err != nil {
		t.Fatalf("EncodeVideos() error = %v", err)
	}

	rows := readRows[VideoRow](t, data, 2)
	if rows[0].VideoCreatedAtUs == nil || *rows[0].VideoCreatedAtUs != created.UnixMicro() {
		t.Fatalf("VideoCreatedAtUs = %v", rows[0].VideoCreatedAtUs)
	}
	if rows[0].ViewsCount != 150 {
		t.Fatalf("ViewsCount = %d", rows[0].ViewsCount)
	}
	if rows[1].VideoCreatedAtUs != nil {
		t.Fatalf("expected NULL timestamp, got %d", *rows[1].VideoCreatedAtUs)
	}
}

func TestEncodeSnapshots(t *testing.T) {
	data, err := EncodeSnapshots([]catalog.Snapshot{
		{ID: "s1", VideoID: "v1", DeltaViewsCount: 30},
	})
	if err != nil {
		t.Fatalf("EncodeSnapshots() error = %v", err)
	}
	rows := readRows[SnapshotRow](t, data, 1)
	if rows[0].VideoID != "v1" || rows[0].DeltaViewsCount != 30 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestExportUploadsBothTables(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{}}
	result, err := Export(context.Background(), store, "archive/latest",
		[]catalog.Video{{ID: "v1", CreatorID: "c1"}},
		[]catalog.Snapshot{{ID: "s1", VideoID: "v1"}, {ID: "s2", VideoID: "v1"}},
	)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.VideosKey != "archive/latest/videos.parquet" || result.SnapshotsKey != "archive/latest/video_snapshots.parquet" {
		t.Fatalf("unexpected keys: %+v", result)
	}
	if result.VideoRows != 1 || result.SnapshotRows != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if _, ok := store.objects[result.VideosKey]; !ok {
		t.Fatal("videos archive not uploaded")
	}
	readRows[SnapshotRow](t, store.objects[result.SnapshotsKey], 2)
	if store.contentType != storage.ParquetContentType {
		t.Fatalf("content type = %q", store.contentType)
	}
}

func TestExportRejectsBadPrefix(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{}}
	if _, err := Export(context.Background(), store, "../escape", nil, nil); err == nil {
		t.Fatal("expected error for invalid prefix")
	}
	if len(store.objects) != 0 {
		t.Fatalf("no objects expected, got %d", len(store.objects))
	}
}

func readRows[T any](t *testing.T, data []byte, want int) []T {
	t.Helper()
	reader := parquet.NewGenericReader[T](bytes.NewReader(data))
	defer func() { _ = reader.Close() }()
	rows := make([]T, want)
	count, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("reader.Read() error = %v", err)
	}
	if count != want {
		t.Fatalf("read rows = %d, want %d", count, want)
	}
	return rows
}

type memoryStore struct {
	objects     map[string][]byte
	contentType string
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.objects[key] = data
	m.contentType = opts.ContentType
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
