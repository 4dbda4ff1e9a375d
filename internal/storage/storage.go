// Package storage abstracts the object store holding JSON dumps and the
// Parquet archive.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

const ObjectURLScheme = "s3://"

const ParquetContentType = "application/vnd.apache.parquet"

var keyComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// ArchiveKey returns the object key of one table's Parquet file under prefix.
func ArchiveKey(prefix, table string) (string, error) {
	if err := validateKeyComponent(table, "table name"); err != nil {
		return "", err
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return table + ".parquet", nil
	}
	for _, component := range strings.Split(prefix, "/") {
		if err := validateKeyComponent(component, "archive prefix"); err != nil {
			return "", err
		}
	}
	return path.Join(prefix, table+".parquet"), nil
}

// IsObjectURL reports whether raw names an object rather than a local file.
func IsObjectURL(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), ObjectURLScheme)
}

// ParseObjectURL splits s3://bucket/key into bucket and key.
func ParseObjectURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, ObjectURLScheme) {
		return "", "", fmt.Errorf("object url must start with %s: %q", ObjectURLScheme, raw)
	}
	rest := strings.TrimPrefix(raw, ObjectURLScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", fmt.Errorf("object url must be %sbucket/key: %q", ObjectURLScheme, raw)
	}
	return bucket, strings.Trim(key, "/"), nil
}

func validateKeyComponent(value, field string) error {
	if !keyComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
