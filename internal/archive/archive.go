// Package archive writes the two tables as Parquet files to the object store.
// The offline DuckDB store reads them back.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/vidstats/vidstats/internal/catalog"
	"github.com/vidstats/vidstats/internal/storage"
)

// VideoRow is the Parquet layout of catalog.Video. Timestamps are unix
// microseconds, absent when the source value was NULL.
type VideoRow struct {
	ID               string `parquet:"id"`
	CreatorID        string `parquet:"creator_id"`
	VideoCreatedAtUs *int64 `parquet:"video_created_at_us,optional"`
	ViewsCount       int64  `parquet:"views_count"`
	LikesCount       int64  `parquet:"likes_count"`
	CommentsCount    int64  `parquet:"comments_count"`
	ReportsCount     int64  `parquet:"reports_count"`
	CreatedAtUs      *int64 `parquet:"created_at_us,optional"`
	UpdatedAtUs      *int64 `parquet:"updated_at_us,optional"`
}

type SnapshotRow struct {
	ID                 string `parquet:"id"`
	VideoID            string `parquet:"video_id"`
	ViewsCount         int64  `parquet:"views_count"`
	LikesCount         int64  `parquet:"likes_count"`
	CommentsCount      int64  `parquet:"comments_count"`
	ReportsCount       int64  `parquet:"reports_count"`
	DeltaViewsCount    int64  `parquet:"delta_views_count"`
	DeltaLikesCount    int64  `parquet:"delta_likes_count"`
	DeltaCommentsCount int64  `parquet:"delta_comments_count"`
	DeltaReportsCount  int64  `parquet:"delta_reports_count"`
	CreatedAtUs        *int64 `parquet:"created_at_us,optional"`
	UpdatedAtUs        *int64 `parquet:"updated_at_us,optional"`
}

type Result struct {
	VideosKey     string
	SnapshotsKey  string
	VideoRows     int64
	SnapshotRows  int64
	BytesUploaded int64
}

// Export encodes both tables and uploads them under prefix, replacing any
// previous archive at the same keys.
func Export(ctx context.Context, store storage.ObjectStore, prefix string, videos []catalog.Video, snapshots []catalog.Snapshot) (Result, error) {
	if store == nil {
		return Result{}, fmt.Errorf("object store is required")
	}

	videosKey, err := storage.ArchiveKey(prefix, catalog.TableVideos)
	if err != nil {
		return Result{}, err
	}
	snapshotsKey, err := storage.ArchiveKey(prefix, catalog.TableSnapshots)
	if err != nil {
		return Result{}, err
	}

	videoData, err := EncodeVideos(videos)
	if err != nil {
		return Result{}, err
	}
	snapshotData, err := EncodeSnapshots(snapshots)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		VideosKey:    videosKey,
		SnapshotsKey: snapshotsKey,
		VideoRows:    int64(len(videos)),
		SnapshotRows: int64(len(snapshots)),
	}
	for _, upload := range []struct {
		key  string
		data []byte
	}{
		{key: videosKey, data: videoData},
		{key: snapshotsKey, data: snapshotData},
	} {
		info, err := store.Put(ctx, upload.key, bytes.NewReader(upload.data), int64(len(upload.data)), storage.PutOptions{ContentType: storage.ParquetContentType})
		if err != nil {
			return Result{}, fmt.Errorf("upload %s: %w", upload.key, err)
		}
		result.BytesUploaded += info.Size
	}
	return result, nil
}

func EncodeVideos(videos []catalog.Video) ([]byte, error) {
	rows := make([]VideoRow, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, VideoRow{
			ID:               v.ID,
			CreatorID:        v.CreatorID,
			VideoCreatedAtUs: unixMicros(v.VideoCreatedAt),
			ViewsCount:       v.ViewsCount,
			LikesCount:       v.LikesCount,
			CommentsCount:    v.CommentsCount,
			ReportsCount:     v.ReportsCount,
			CreatedAtUs:      unixMicros(v.CreatedAt),
			UpdatedAtUs:      unixMicros(v.UpdatedAt),
		})
	}
	return encode(rows)
}

func EncodeSnapshots(snapshots []catalog.Snapshot) ([]byte, error) {
	rows := make([]SnapshotRow, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, SnapshotRow{
			ID:                 s.ID,
			VideoID:            s.VideoID,
			ViewsCount:         s.ViewsCount,
			LikesCount:         s.LikesCount,
			CommentsCount:      s.CommentsCount,
			ReportsCount:       s.ReportsCount,
			DeltaViewsCount:    s.DeltaViewsCount,
			DeltaLikesCount:    s.DeltaLikesCount,
			DeltaCommentsCount: s.DeltaCommentsCount,
			DeltaReportsCount:  s.DeltaReportsCount,
			CreatedAtUs:        unixMicros(s.CreatedAt),
			UpdatedAtUs:        unixMicros(s.UpdatedAt),
		})
	}
	return encode(rows)
}

func encode[T any](rows []T) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func unixMicros(ts *time.Time) *int64 {
	if ts == nil {
		return nil
	}
	us := ts.UnixMicro()
	return &us
}
