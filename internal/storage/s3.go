package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dropbin/service/internal/config"
)

// S3API is the subset of the AWS S3 client used here; tests substitute a mock.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// S3Storage implements Storage on Amazon S3 (or an S3-compatible endpoint).
type S3Storage struct {
	client     S3API
	bucket     string
	publicBase string
}

// NewS3Storage creates an S3 client from static credentials and region.
// Failed writes are not retried: the SDK retryer is capped at one attempt.
func NewS3Storage(ctx context.Context, cfg config.StorageConfig) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// Custom endpoints (LocalStack, S3-compatible providers) rarely
			// support virtual-hosted buckets.
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StorageWithClient(client, cfg.Bucket, cfg.PublicBase), nil
}

// NewS3StorageWithClient wraps an existing S3API implementation.
func NewS3StorageWithClient(client S3API, bucket, publicBase string) *S3Storage {
	return &S3Storage{
		client:     client,
		bucket:     bucket,
		publicBase: publicBase,
	}
}

// Upload puts reader under key with the given content type.
func (s *S3Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return newObjectError("upload", s.bucket, key, convertAWSError(err))
	}
	return nil
}

// PublicURL returns https://{bucket}.{domain}/{key} (or the configured base).
func (s *S3Storage) PublicURL(key string) string {
	return PublicURL(s.publicBase, key)
}

func convertAWSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return classify(apiErr.ErrorCode(), err)
	}
	return classify("", err)
}
