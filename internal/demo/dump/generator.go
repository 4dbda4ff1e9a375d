// Package dump generates synthetic video dumps in the importer's JSON shape
// for demos and load tests.
package dump

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
)

const timeLayout = "2006-01-02T15:04:05+00:00"

type Video struct {
	ID             string     `json:"id"`
	CreatorID      string     `json:"creator_id"`
	VideoCreatedAt string     `json:"video_created_at"`
	ViewsCount     int64      `json:"views_count"`
	LikesCount     int64      `json:"likes_count"`
	CommentsCount  int64      `json:"comments_count"`
	ReportsCount   int64      `json:"reports_count"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at"`
	Snapshots      []Snapshot `json:"snapshots"`
}

type Snapshot struct {
	ID                 string `json:"id"`
	VideoID            string `json:"video_id"`
	ViewsCount         int64  `json:"views_count"`
	LikesCount         int64  `json:"likes_count"`
	CommentsCount      int64  `json:"comments_count"`
	ReportsCount       int64  `json:"reports_count"`
	DeltaViewsCount    int64  `json:"delta_views_count"`
	DeltaLikesCount    int64  `json:"delta_likes_count"`
	DeltaCommentsCount int64  `json:"delta_comments_count"`
	DeltaReportsCount  int64  `json:"delta_reports_count"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// Generator produces videos with one snapshot per hour. Each snapshot's
// totals equal the previous totals plus its deltas, and the video's counters
// equal its last snapshot.
type Generator struct {
	rnd      *rand.Rand
	creators int
	hours    int
	start    time.Time
	sequence int64
}

// NewGenerator publishes videos between start and start+7 days, each
// tracked for hours hourly snapshots.
func NewGenerator(seed int64, creators, hours int, start time.Time) *Generator {
	if creators <= 0 {
		creators = 1
	}
	if hours < 0 {
		hours = 0
	}
	return &Generator{
		rnd:      rand.New(rand.NewSource(seed)),
		creators: creators,
		hours:    hours,
		start:    start.UTC(),
	}
}

func (g *Generator) NextVideo() Video {
	g.sequence++
	id := fmt.Sprintf("video-%08d", g.sequence)
	publishedAt := g.start.Add(time.Duration(g.rnd.Intn(7*24*60)) * time.Minute)

	video := Video{
		ID:             id,
		CreatorID:      fmt.Sprintf("creator-%03d", g.rnd.Intn(g.creators)+1),
		VideoCreatedAt: publishedAt.Format(timeLayout),
		CreatedAt:      publishedAt.Format(timeLayout),
		Snapshots:      make([]Snapshot, 0, g.hours),
	}

	var views, likes, comments, reports int64
	lastAt := publishedAt
	for h := 1; h <= g.hours; h++ {
		dViews := int64(g.rnd.Intn(500))
		if g.rnd.Intn(10) == 0 {
			dViews = 0
		}
		dLikes := int64(g.rnd.Intn(int(dViews/10) + 1))
		dComments := int64(g.rnd.Intn(int(dLikes/5) + 1))
		var dReports int64
		if g.rnd.Intn(50) == 0 {
			dReports = 1
		}
		views += dViews
		likes += dLikes
		comments += dComments
		reports += dReports

		lastAt = publishedAt.Add(time.Duration(h) * time.Hour)
		video.Snapshots = append(video.Snapshots, Snapshot{
			ID:                 fmt.Sprintf("%s-s%04d", id, h),
			VideoID:            id,
			ViewsCount:         views,
			LikesCount:         likes,
			CommentsCount:      comments,
			ReportsCount:       reports,
			DeltaViewsCount:    dViews,
			DeltaLikesCount:    dLikes,
			DeltaCommentsCount: dComments,
			DeltaReportsCount:  dReports,
			CreatedAt:          lastAt.Format(timeLayout),
			UpdatedAt:          lastAt.Format(timeLayout),
		})
	}

	video.ViewsCount = views
	video.LikesCount = likes
	video.CommentsCount = comments
	video.ReportsCount = reports
	video.UpdatedAt = lastAt.Format(timeLayout)
	return video
}

// Write encodes count videos as {"videos": [...]}.
func (g *Generator) Write(w io.Writer, count int) error {
	videos := make([]Video, 0, count)
	for i := 0; i < count; i++ {
		videos = append(videos, g.NextVideo())
	}
	if err := json.NewEncoder(w).Encode(map[string][]Video{"videos": videos}); err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	return nil
}
