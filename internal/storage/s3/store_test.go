package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vidstats/vidstats/internal/storage"
)

func TestPutScopesKeyToPrefix(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("vidstats", "exports/prod", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	_, err = store.Put(context.Background(), "/archive/latest/videos.parquet", bytes.NewBufferString("abc"), 3, storage.PutOptions{ContentType: storage.ParquetContentType})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastBucket != "vidstats" {
		t.Fatalf("bucket = %q", fake.lastBucket)
	}
	if fake.lastKey != "exports/prod/archive/latest/videos.parquet" {
		t.Fatalf("key = %q", fake.lastKey)
	}
	if fake.lastContentType != storage.ParquetContentType {
		t.Fatalf("content type = %q", fake.lastContentType)
	}
}

func TestPutRejectsPathTraversal(t *testing.T) {
	store, err := NewWithClient("vidstats", "", &fakeClient{})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	for _, key := range []string{"../secrets.txt", "..", " ", "a/../../b"} {
		if _, err := store.Put(context.Background(), key, bytes.NewBufferString("x"), 1, storage.PutOptions{}); err == nil {
			t.Fatalf("Put(%q) expected validation error", key)
		}
	}
}

func TestGetMapsMissingObject(t *testing.T) {
	store, err := NewWithClient("vidstats", "", &fakeClient{getErr: storage.ErrObjectNotFound})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	_, err = store.Get(context.Background(), "data.json")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
}

func TestGetReturnsBody(t *testing.T) {
	store, err := NewWithClient("vidstats", "dumps", &fakeClient{})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	body, err := store.Get(context.Background(), "data.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer body.Close()
	raw, _ := io.ReadAll(body)
	if string(raw) != "dumps/data.json" {
		t.Fatalf("Get() body = %q", raw)
	}
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	fake := &fakeClient{bucketExists: false}
	store, err := NewWithClient("vidstats", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if !fake.makeBucketCalled {
		t.Fatal("expected MakeBucket to be called")
	}
}

func TestEnsureBucketSkipsExisting(t *testing.T) {
	fake := &fakeClient{bucketExists: true}
	store, _ := NewWithClient("vidstats", "", fake)
	if err := store.ensureBucket(context.Background(), ""); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if fake.makeBucketCalled {
		t.Fatal("MakeBucket should not be called for an existing bucket")
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw        string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{raw: "https://minio.example.com", wantHost: "minio.example.com", wantSecure: true},
		{raw: "http://localhost:9000", wantHost: "localhost:9000"},
		{raw: "localhost:9000", useSSL: true, wantHost: "localhost:9000", wantSecure: true},
	}
	for _, tc := range tests {
		host, secure, err := parseEndpoint(tc.raw, tc.useSSL)
		if err != nil {
			t.Fatalf("parseEndpoint(%q) error = %v", tc.raw, err)
		}
		if host != tc.wantHost || secure != tc.wantSecure {
			t.Fatalf("parseEndpoint(%q) = %q/%v", tc.raw, host, secure)
		}
	}
	if _, _, err := parseEndpoint("ftp://minio", false); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestNewWithClientValidates(t *testing.T) {
	if _, err := NewWithClient("vidstats", "", nil); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewWithClient(" ", "", &fakeClient{}); err == nil {
		t.Fatal("expected error for blank bucket")
	}
}

type fakeClient struct {
	lastBucket       string
	lastKey          string
	lastContentType  string
	bucketExists     bool
	makeBucketCalled bool
	getErr           error
}

func (f *fakeClient) PutObject(_ context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (storage.ObjectInfo, error) {
	f.lastBucket = bucket
	f.lastKey = key
	f.lastContentType = contentType
	_, _ = io.Copy(io.Discard, reader)
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag-1"}, nil
}

func (f *fakeClient) GetObject(_ context.Context, _, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return io.NopCloser(strings.NewReader(key)), nil
}

func (f *fakeClient) StatObject(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{Key: key, Size: 10, LastModified: time.Now().UTC()}, nil
}

func (f *fakeClient) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeClient) MakeBucket(_ context.Context, _, _ string) error {
	f.makeBucketCalled = true
	return nil
}
