package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/syncline/marketsync/internal/config"
)

// ErrArchiveDisabled is returned by Fetch when no archive backend is
// configured.
var ErrArchiveDisabled = errors.New("payload archive is disabled")

// S3Archive implements Archiver on any S3-compatible object store.
type S3Archive struct {
	client *s3.Client
	bucket string
}

// New builds an Archiver from configuration. Returns the no-op Disabled
// archiver when archiving is turned off.
// Parameters:
//   - cfg: archive configuration including endpoint, credentials, and bucket.
// Returns:
//   - Archiver: initialized archive backend.
//   - error: non-nil if the S3 client cannot be created.
func New(cfg *config.ArchiveConfig) (Archiver, error) {
	if cfg == nil || !cfg.Enabled {
		return Disabled{}, nil
	}
	return NewS3Archive(cfg)
}

// NewS3Archive creates an S3-backed archive client.
func NewS3Archive(cfg *config.ArchiveConfig) (*S3Archive, error) {
	endpoint := normalizeEndpoint(cfg.Endpoint)

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s", scheme, endpoint)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true // Use path-style for S3-compatible services
	})

	return &S3Archive{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return strings.TrimSuffix(endpoint, "/")
}

// EnsureBucket creates the bucket if it doesn't exist
func (a *S3Archive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// objectKey buckets payloads per connection.
func objectKey(connectionID, externalID string) string {
	return fmt.Sprintf("%s/%s.json", connectionID, externalID)
}

// Store writes the raw payload for one product snapshot.
func (a *S3Archive) Store(ctx context.Context, connectionID, externalID string, payload []byte) error {
	key := objectKey(connectionID, externalID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive payload: %w", err)
	}
	return nil
}

// Fetch reads back an archived payload.
func (a *S3Archive) Fetch(ctx context.Context, connectionID, externalID string) (io.ReadCloser, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey(connectionID, externalID)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archived payload: %w", err)
	}
	return result.Body, nil
}

// Delete removes an archived payload.
func (a *S3Archive) Delete(ctx context.Context, connectionID, externalID string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey(connectionID, externalID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete archived payload: %w", err)
	}
	return nil
}
