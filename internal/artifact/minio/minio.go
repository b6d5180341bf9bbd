// Package minio implements the artifact Store on an S3-compatible object
// store through minio-go.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/4xachi/pcast/internal/artifact"
	"github.com/4xachi/pcast/internal/config"
	"github.com/4xachi/pcast/internal/podcast"
)

// objectAPI is the subset of *miniosdk.Client the store uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts miniosdk.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader *bytes.Reader, size int64, opts miniosdk.PutObjectOptions) (miniosdk.UploadInfo, error)
}

// clientAdapter narrows PutObject's reader type so fakes stay simple.
type clientAdapter struct{ *miniosdk.Client }

func (c clientAdapter) PutObject(ctx context.Context, bucket, object string, reader *bytes.Reader, size int64, opts miniosdk.PutObjectOptions) (miniosdk.UploadInfo, error) {
	return c.Client.PutObject(ctx, bucket, object, reader, size, opts)
}

// Store uploads artifacts as two objects under an optional prefix.
type Store struct {
	client objectAPI
	bucket string
	prefix string
}

// New connects to the object store and creates the bucket if it is missing.
func New(ctx context.Context, cfg config.MinIOConfig) (*Store, error) {
	client, err := miniosdk.New(cfg.Endpoint, &miniosdk.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return newStore(ctx, clientAdapter{client}, cfg.Bucket, cfg.Prefix)
}

func newStore(ctx context.Context, client objectAPI, bucket, prefix string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("minio bucket is not set")
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, miniosdk.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
		slog.Info("created artifact bucket", "bucket", bucket)
	}
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Name returns the backend identifier.
func (s *Store) Name() string { return "minio" }

// Save uploads <prefix>/<id>.txt and <prefix>/<id>.wav.
func (s *Store) Save(ctx context.Context, a *podcast.Artifact) (artifact.Location, error) {
	if a.ID == "" {
		return artifact.Location{}, fmt.Errorf("artifact has no id")
	}

	transcriptKey := path.Join(s.prefix, artifact.TranscriptName(a.ID))
	audioKey := path.Join(s.prefix, artifact.AudioName(a.ID))

	if err := s.put(ctx, transcriptKey, []byte(a.Transcript), "text/plain; charset=utf-8"); err != nil {
		return artifact.Location{}, err
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}
	if err := s.put(ctx, audioKey, a.Audio, contentType); err != nil {
		return artifact.Location{}, err
	}

	loc := artifact.Location{
		Audio:      fmt.Sprintf("s3://%s/%s", s.bucket, audioKey),
		Transcript: fmt.Sprintf("s3://%s/%s", s.bucket, transcriptKey),
	}
	slog.Info("artifact uploaded", "id", a.ID, "audio", loc.Audio, "transcript", loc.Transcript)
	return loc, nil
}

func (s *Store) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), miniosdk.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}
