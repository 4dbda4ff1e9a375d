// Package catalog describes the two tables the bot answers questions about.
package catalog

import (
	"context"
	"time"
)

const (
	TableVideos    = "videos"
	TableSnapshots = "video_snapshots"
)

var VideoColumns = []string{
	"id",
	"creator_id",
	"video_created_at",
	"views_count",
	"likes_count",
	"comments_count",
	"reports_count",
	"created_at",
	"updated_at",
}

var SnapshotColumns = []string{
	"id",
	"video_id",
	"views_count",
	"likes_count",
	"comments_count",
	"reports_count",
	"delta_views_count",
	"delta_likes_count",
	"delta_comments_count",
	"delta_reports_count",
	"created_at",
	"updated_at",
}

// Video holds the current totals of one video. Nil timestamps are stored as
// NULL.
type Video struct {
	ID             string
	CreatorID      string
	VideoCreatedAt *time.Time
	ViewsCount     int64
	LikesCount     int64
	CommentsCount  int64
	ReportsCount   int64
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
}

// Values returns the row in VideoColumns order.
func (v Video) Values() []any {
	return []any{
		v.ID,
		v.CreatorID,
		v.VideoCreatedAt,
		v.ViewsCount,
		v.LikesCount,
		v.CommentsCount,
		v.ReportsCount,
		v.CreatedAt,
		v.UpdatedAt,
	}
}

// Snapshot holds a video's counters at one point in time and the deltas
// since the previous snapshot of the same video.
type Snapshot struct {
	ID                 string
	VideoID            string
	ViewsCount         int64
	LikesCount         int64
	CommentsCount      int64
	ReportsCount       int64
	DeltaViewsCount    int64
	DeltaLikesCount    int64
	DeltaCommentsCount int64
	DeltaReportsCount  int64
	CreatedAt          *time.Time
	UpdatedAt          *time.Time
}

// Values returns the row in SnapshotColumns order.
func (s Snapshot) Values() []any {
	return []any{
		s.ID,
		s.VideoID,
		s.ViewsCount,
		s.LikesCount,
		s.CommentsCount,
		s.ReportsCount,
		s.DeltaViewsCount,
		s.DeltaLikesCount,
		s.DeltaCommentsCount,
		s.DeltaReportsCount,
		s.CreatedAt,
		s.UpdatedAt,
	}
}

// Writer bulk-inserts rows. Implementations return the number of rows
// written.
type Writer interface {
	CopyVideos(ctx context.Context, videos []Video) (int64, error)
	CopySnapshots(ctx context.Context, snapshots []Snapshot) (int64, error)
}
