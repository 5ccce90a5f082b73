package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dropbin/service/internal/config"
)

// MinioStorage writes uploads to a MinIO (or other S3-compatible) server and
// hands out path-style download URLs under publicBase.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStorage connects to cfg.Endpoint and prepares cfg.Bucket so that
// returned file URLs can be opened without credentials.
func NewMinioStorage(ctx context.Context, cfg config.StorageConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", cfg.Endpoint, err)
	}

	if err := prepareDownloadBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
		return nil, err
	}

	return &MinioStorage{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBase,
	}, nil
}

// prepareDownloadBucket creates bucket if needed and lets anonymous clients
// GET its objects. The Download action opens the URL in a browser, which
// sends no S3 signature.
func prepareDownloadBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return newObjectError("prepare", bucket, "", classify(minio.ToErrorResponse(err).Code, err))
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return newObjectError("prepare", bucket, "", classify(minio.ToErrorResponse(err).Code, err))
		}
	}

	policy, err := anonymousDownloadPolicy(bucket)
	if err != nil {
		return err
	}
	if err := client.SetBucketPolicy(ctx, bucket, policy); err != nil {
		return newObjectError("prepare", bucket, "", classify(minio.ToErrorResponse(err).Code, err))
	}
	return nil
}

// Upload puts the file under key. Same key, same object: the later upload wins.
func (s *MinioStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return newObjectError("upload", s.bucket, key, classify(minio.ToErrorResponse(err).Code, err))
	}
	return nil
}

// PublicURL returns the download URL for key, e.g.
// "http://localhost:9000/uploads/report%20v2.pdf".
func (s *MinioStorage) PublicURL(key string) string {
	return PublicURL(s.publicBase, key)
}

type policyStatement struct {
	Effect    string `json:"Effect"`
	Principal string `json:"Principal"`
	Action    string `json:"Action"`
	Resource  string `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// anonymousDownloadPolicy allows s3:GetObject on every key in bucket and
// nothing else; listing and writing still need credentials.
func anonymousDownloadPolicy(bucket string) (string, error) {
	b, err := json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: "*",
			Action:    "s3:GetObject",
			Resource:  "arn:aws:s3:::" + bucket + "/*",
		}},
	})
	if err != nil {
		return "", fmt.Errorf("encode bucket policy: %w", err)
	}
	return string(b), nil
}
