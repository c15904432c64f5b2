package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	appconfig "facematch-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectStore is the gateway to the image object bucket. Objects are
// written world-readable; the returned URLs are served directly to
// browsers without presigning.
type ObjectStore struct {
	client    *s3.Client
	bucket    string
	region    string
	endpoint  string
	maxListed int
}

// NewObjectStore creates an object store gateway from AWS configuration
func NewObjectStore(ctx context.Context, cfg appconfig.AWSConfig, maxListed int) (*ObjectStore, error) {
	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ObjectStore{
		client:    client,
		bucket:    cfg.S3Bucket,
		region:    cfg.Region,
		endpoint:  cfg.Endpoint,
		maxListed: maxListed,
	}, nil
}

// Put uploads an object with public-read visibility and returns its URL
func (s *ObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// List returns object keys under a prefix, paginating internally up to
// the configured maximum
func (s *ObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() && len(keys) < s.maxListed {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if len(keys) >= s.maxListed {
				break
			}
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

// Get downloads an object by key
func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// PublicURL returns the browser-facing URL for a key
func (s *ObjectStore) PublicURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// KeyFromURL recovers the object key from a URL produced by PublicURL.
// Unknown URLs are returned unchanged so pre-migration references still
// resolve when they were stored as bare keys.
func (s *ObjectStore) KeyFromURL(url string) string {
	prefixes := []string{
		fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region),
	}
	if s.endpoint != "" {
		prefixes = append(prefixes, fmt.Sprintf("%s/%s/", strings.TrimRight(s.endpoint, "/"), s.bucket))
	}
	for _, p := range prefixes {
		if strings.HasPrefix(url, p) {
			return strings.TrimPrefix(url, p)
		}
	}
	return url
}

// Bucket returns the bucket name
func (s *ObjectStore) Bucket() string {
	return s.bucket
}

// Key scheme, partitioned by event and purpose.

// EventImageKey returns the key for an event gallery image
func EventImageKey(eventID, filename string) string {
	return fmt.Sprintf("events/shared/%s/images/%s", eventID, filename)
}

// EventImagePrefix returns the listing prefix for an event's gallery
func EventImagePrefix(eventID string) string {
	return fmt.Sprintf("events/shared/%s/images/", eventID)
}

// EventCoverKey returns the key for an event's cover image
func EventCoverKey(eventID string) string {
	return fmt.Sprintf("events/shared/%s/cover.jpg", eventID)
}

// EventSelfieKey returns the key for a selfie submitted against an event
func EventSelfieKey(eventID, filename string) string {
	return fmt.Sprintf("events/shared/%s/selfies/%s", eventID, filename)
}

// UserSelfieKey returns the key for a user's default selfie
func UserSelfieKey(userID, filename string) string {
	return fmt.Sprintf("users/%s/selfies/%s", userID, filename)
}
