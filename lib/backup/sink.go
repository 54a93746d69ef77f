package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// --------------------------------------------------------------------------
// File Sink
// --------------------------------------------------------------------------

type fileSinkImpl struct {
	dir string
}

// NewFileSink creates a sink writing every backup as a file into dir
func NewFileSink(dir string) ISink {
	return &fileSinkImpl{dir: dir}
}

func (s *fileSinkImpl) GetName() string {
	return "file://" + s.dir
}

func (s *fileSinkImpl) Put(_ context.Context, name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// S3 Sink
// --------------------------------------------------------------------------

// S3Config configures the S3 backup sink
type S3Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	Insecure  bool
}

type s3SinkImpl struct {
	cfg    S3Config
	client *minio.Client
}

// NewS3Sink creates a sink uploading every backup as an object into an S3 bucket.
// Path style bucket lookup is used, which works for AWS and most S3 compatible stores.
func NewS3Sink(cfg S3Config) (ISink, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       !cfg.Insecure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &s3SinkImpl{cfg: cfg, client: client}, nil
}

func (s *s3SinkImpl) GetName() string {
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, s.cfg.Prefix)
}

func (s *s3SinkImpl) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, s.objectName(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return fmt.Errorf("upload backup object: %w", err)
	}
	return nil
}

func (s *s3SinkImpl) objectName(name string) string {
	if s.cfg.Prefix == "" {
		return name
	}
	return s.cfg.Prefix + "/" + name
}
