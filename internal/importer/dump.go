package importer

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

var ErrUnrecognizedDump = errors.New("dump structure is not recognized")

type dumpVideo struct {
	ID             string         `json:"id"`
	CreatorID      string         `json:"creator_id"`
	VideoCreatedAt dumpTime       `json:"video_created_at"`
	ViewsCount     int64          `json:"views_count"`
	LikesCount     int64          `json:"likes_count"`
	CommentsCount  int64          `json:"comments_count"`
	ReportsCount   int64          `json:"reports_count"`
	CreatedAt      dumpTime       `json:"created_at"`
	UpdatedAt      dumpTime       `json:"updated_at"`
	Snapshots      []dumpSnapshot `json:"snapshots"`
}

type dumpSnapshot struct {
	ID                 string   `json:"id"`
	VideoID            string   `json:"video_id"`
	ViewsCount         int64    `json:"views_count"`
	LikesCount         int64    `json:"likes_count"`
	CommentsCount      int64    `json:"comments_count"`
	ReportsCount       int64    `json:"reports_count"`
	DeltaViewsCount    int64    `json:"delta_views_count"`
	DeltaLikesCount    int64    `json:"delta_likes_count"`
	DeltaCommentsCount int64    `json:"delta_comments_count"`
	DeltaReportsCount  int64    `json:"delta_reports_count"`
	CreatedAt          dumpTime `json:"created_at"`
	UpdatedAt          dumpTime `json:"updated_at"`
}

// dumpTime keeps a timestamp field undecoded so that a value of the wrong
// JSON type fails only that field.
type dumpTime json.RawMessage

func (d *dumpTime) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}

var errTimestampNotString = errors.New("timestamp is not a string")

// text returns the string value. ok is false for a missing or null field.
func (d dumpTime) text() (value string, ok bool, err error) {
	raw := bytes.TrimSpace(d)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", true, errTimestampNotString
	}
	return value, true, nil
}

// decodeDump accepts {"videos": [...]} or a bare list of videos.
func decodeDump(raw []byte) ([]dumpVideo, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrUnrecognizedDump
	}

	switch trimmed[0] {
	case '[':
		var videos []dumpVideo
		if err := json.Unmarshal(trimmed, &videos); err != nil {
			return nil, fmt.Errorf("decode video list: %w", err)
		}
		return videos, nil
	case '{':
		var wrapped struct {
			Videos *[]dumpVideo `json:"videos"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode dump object: %w", err)
		}
		if wrapped.Videos == nil {
			return nil, ErrUnrecognizedDump
		}
		return *wrapped.Videos, nil
	default:
		return nil, ErrUnrecognizedDump
	}
}

// Fractional seconds are accepted after any seconds field.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses the ISO-8601 shapes found in dumps. Values without an
// offset are UTC. An empty string yields nil without error.
func ParseTime(raw string) (*time.Time, error) {
	raw = string(bytes.TrimSpace([]byte(raw)))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("unsupported time format %q", raw)
}
