// Package importer loads a JSON dump of videos and their snapshots into the
// store.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/vidstats/vidstats/internal/archive"
	"github.com/vidstats/vidstats/internal/catalog"
	"github.com/vidstats/vidstats/internal/observability"
	"github.com/vidstats/vidstats/internal/storage"
)

// Sink receives videos first, then snapshots.
type Sink = catalog.Writer

type Config struct {
	Sink   Sink
	Logger *slog.Logger
	// Archive, when set, receives a Parquet copy of the imported rows under
	// ArchivePrefix.
	Archive       storage.ObjectStore
	ArchivePrefix string
}

type Importer struct {
	sink          Sink
	logger        *slog.Logger
	archive       storage.ObjectStore
	archivePrefix string
}

type Summary struct {
	Videos        int64
	Snapshots     int64
	ParseFailures int
	Archive       *archive.Result
	Duration      time.Duration
}

func New(cfg Config) (*Importer, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("import sink is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{
		sink:          cfg.Sink,
		logger:        logger,
		archive:       cfg.Archive,
		archivePrefix: cfg.ArchivePrefix,
	}, nil
}

// Load decodes a dump and writes it through the sink. Unparsable timestamps
// are stored as NULL and counted; any decode or write error aborts.
func (i *Importer) Load(ctx context.Context, r io.Reader) (Summary, error) {
	start := time.Now()
	raw, err := io.ReadAll(r)
	if err != nil {
		return Summary{}, fmt.Errorf("read dump: %w", err)
	}
	dumped, err := decodeDump(raw)
	if err != nil {
		return Summary{}, err
	}
	i.logger.Info("loaded dump", "videos", len(dumped))

	rows := flatten{logger: i.logger}
	videos, snapshots := rows.convert(dumped)
	summary := Summary{ParseFailures: rows.failures}

	i.logger.Info("inserting videos", "rows", len(videos))
	summary.Videos, err = i.sink.CopyVideos(ctx, videos)
	if err != nil {
		return summary, fmt.Errorf("copy videos: %w", err)
	}
	observability.AddImportedRows(catalog.TableVideos, int(summary.Videos))

	i.logger.Info("inserting snapshots", "rows", len(snapshots))
	summary.Snapshots, err = i.sink.CopySnapshots(ctx, snapshots)
	if err != nil {
		return summary, fmt.Errorf("copy snapshots: %w", err)
	}
	observability.AddImportedRows(catalog.TableSnapshots, int(summary.Snapshots))

	if i.archive != nil {
		result, err := archive.Export(ctx, i.archive, i.archivePrefix, videos, snapshots)
		if err != nil {
			return summary, fmt.Errorf("archive import: %w", err)
		}
		summary.Archive = &result
		i.logger.Info("archived import", "videos_key", result.VideosKey, "snapshots_key", result.SnapshotsKey, "bytes", result.BytesUploaded)
	}

	summary.Duration = time.Since(start)
	i.logger.Info("import completed",
		"videos", summary.Videos,
		"snapshots", summary.Snapshots,
		"parse_failures", summary.ParseFailures,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

type flatten struct {
	logger   *slog.Logger
	failures int
}

func (f *flatten) convert(dumped []dumpVideo) ([]catalog.Video, []catalog.Snapshot) {
	videos := make([]catalog.Video, 0, len(dumped))
	var snapshots []catalog.Snapshot
	for _, v := range dumped {
		videos = append(videos, catalog.Video{
			ID:             v.ID,
			CreatorID:      v.CreatorID,
			VideoCreatedAt: f.parse(v.VideoCreatedAt, "video_created_at", v.ID),
			ViewsCount:     v.ViewsCount,
			LikesCount:     v.LikesCount,
			CommentsCount:  v.CommentsCount,
			ReportsCount:   v.ReportsCount,
			CreatedAt:      f.parse(v.CreatedAt, "created_at", v.ID),
			UpdatedAt:      f.parse(v.UpdatedAt, "updated_at", v.ID),
		})
		for _, s := range v.Snapshots {
			snapshots = append(snapshots, catalog.Snapshot{
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
				CreatedAt:          f.parse(s.CreatedAt, "created_at", s.ID),
				UpdatedAt:          f.parse(s.UpdatedAt, "updated_at", s.ID),
			})
		}
	}
	return videos, snapshots
}

func (f *flatten) parse(raw dumpTime, field, rowID string) *time.Time {
	value, ok, err := raw.text()
	if !ok {
		return nil
	}
	if err == nil {
		var parsed *time.Time
		if parsed, err = ParseTime(value); err == nil {
			return parsed
		}
	} else {
		value = string(raw)
	}
	f.failures++
	observability.IncrementImportParseFailures()
	f.logger.Warn("failed to parse timestamp", "row_id", rowID, "field", field, "value", value, "error", err)
	return nil
}

// OpenSource opens a local dump file, or an s3://bucket/key object from
// store. The bucket must be the one store is bound to.
func OpenSource(ctx context.Context, source string, store storage.ObjectStore, bucket string) (io.ReadCloser, error) {
	if !storage.IsObjectURL(source) {
		file, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open dump file: %w", err)
		}
		return file, nil
	}

	sourceBucket, key, err := storage.ParseObjectURL(source)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("object store is required for %q", source)
	}
	if sourceBucket != bucket {
		return nil, fmt.Errorf("dump bucket %q does not match configured bucket %q", sourceBucket, bucket)
	}
	reader, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open dump object: %w", err)
	}
	return reader, nil
}
