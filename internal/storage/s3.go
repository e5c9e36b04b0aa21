package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store writes backup objects to an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// S3Config holds the connection settings for the backup bucket. Endpoint
// is optional and enables S3-compatible stores (MinIO, Ceph RGW).
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func NewS3Store(cfg S3Config) *S3Store {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.Endpoint != "",
		BaseEndpoint: optional(cfg.Endpoint),
	})
	return &S3Store{client: client, bucket: cfg.Bucket}
}

// Put spools the stream to a temp file first so the upload has a known
// length and a seekable body for retries.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	f, err := os.CreateTemp("", "portal-backup-*")
	if err != nil {
		return 0, fmt.Errorf("create upload spool: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return n, fmt.Errorf("spool backup %s: %w", key, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return n, fmt.Errorf("rewind upload spool: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(n),
	})
	if err != nil {
		return n, fmt.Errorf("upload backup %s: %w", key, err)
	}
	return n, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
