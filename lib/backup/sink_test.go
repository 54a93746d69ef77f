package backup

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func setupFakeS3(t *testing.T) (*httptest.Server, S3Config) {
	t.Helper()
	backend := s3mem.New()
	fs := gofakes3.New(backend)
	server := httptest.NewServer(fs.Server())
	t.Cleanup(server.Close)

	bucket := "skv-backups"
	if err := backend.CreateBucket(bucket); err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	return server, S3Config{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		Bucket:    bucket,
		Prefix:    "/nightly/",
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
		Insecure:  true,
	}
}

func TestS3Sink(t *testing.T) {
	_, cfg := setupFakeS3(t)

	sink, err := NewS3Sink(cfg)
	if err != nil {
		t.Fatalf("NewS3Sink failed: %v", err)
	}
	m := NewManager(sink, 1)
	if err := m.Start("job-1.bck", writeString("(a, 1)\n(b, 2)\n")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	obj, err := client.GetObject(context.Background(), cfg.Bucket, "nightly/job-1.bck", minio.GetObjectOptions{})
	if err != nil {
		t.Fatalf("get object: %v", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(data) != "(a, 1)\n(b, 2)\n" {
		t.Errorf("Unexpected object content %q", data)
	}
}

func TestS3SinkMissingBucket(t *testing.T) {
	_, cfg := setupFakeS3(t)
	cfg.Bucket = "missing"

	sink, err := NewS3Sink(cfg)
	if err != nil {
		t.Fatalf("NewS3Sink failed: %v", err)
	}
	if err := sink.Put(context.Background(), "x.bck", []byte("x")); err == nil {
		t.Errorf("Expected upload into missing bucket to fail")
	}
}

func TestS3SinkConfig(t *testing.T) {
	if _, err := NewS3Sink(S3Config{Bucket: "b"}); err == nil {
		t.Errorf("Expected missing endpoint to be rejected")
	}
	if _, err := NewS3Sink(S3Config{Endpoint: "localhost:9000"}); err == nil {
		t.Errorf("Expected missing bucket to be rejected")
	}
}
