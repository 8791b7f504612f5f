// Package s3 provides a fetcher for s3://bucket/key locations.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// DefaultMaxBodyBytes caps object reads. Larger objects fail the fetch.
const DefaultMaxBodyBytes = 50 << 20

// ObjectGetter is the part of the S3 client the fetcher uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds S3 client configuration. Empty fields fall back to the
// SDK's default chain (environment, shared config, instance role).
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint addresses an S3-compatible server such as MinIO; it
	// switches to path-style addressing.
	Endpoint string

	MaxBodyBytes int64
}

// Fetcher reads objects from S3.
type Fetcher struct {
	client       ObjectGetter
	maxBodyBytes int64
}

// New loads AWS configuration and creates a fetcher.
func New(ctx context.Context, cfg Config) (*Fetcher, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.MaxBodyBytes), nil
}

// NewWithClient creates a fetcher over an existing client.
func NewWithClient(client ObjectGetter, maxBodyBytes int64) *Fetcher {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Fetcher{client: client, maxBodyBytes: maxBodyBytes}
}

// ParseLocation splits s3://bucket/key.
func ParseLocation(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%w: not an s3 location: %q", domain.ErrInvalidInput, raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("%w: s3 location has no key: %q", domain.ErrInvalidInput, raw)
	}
	return u.Host, key, nil
}

// Fetch reads the object named by rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*driven.FetchResult, error) {
	bucket, key, err := ParseLocation(rawURL)
	if err != nil {
		return nil, err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %w: %s", domain.ErrFetchFailed, domain.ErrNotFound, rawURL)
		}
		return nil, fmt.Errorf("%w: s3 get %s: %v", domain.ErrFetchFailed, rawURL, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrFetchFailed, rawURL, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: %s: object exceeds %d bytes", domain.ErrFetchFailed, rawURL, f.maxBodyBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyBody, rawURL)
	}

	return &driven.FetchResult{
		URL:         rawURL,
		ContentType: aws.ToString(out.ContentType),
		Body:        body,
	}, nil
}
