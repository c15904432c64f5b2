package services

import (
	"context"
	"fmt"

	appconfig "facematch-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// FaceComparer compares two images stored in the object bucket and
// reports the best similarity score. ok is false when no face matched.
type FaceComparer interface {
	Compare(ctx context.Context, sourceKey, targetKey string) (similarity float64, ok bool, err error)
}

// RekognitionComparer implements FaceComparer with AWS Rekognition
// CompareFaces against S3 object references.
type RekognitionComparer struct {
	client    *rekognition.Client
	bucket    string
	threshold float64
}

// NewRekognitionComparer creates a face comparison gateway. threshold is
// passed to the comparison call itself; the caller applies its own,
// looser acceptance threshold on top.
func NewRekognitionComparer(ctx context.Context, cfg appconfig.AWSConfig, threshold float64) (*RekognitionComparer, error) {
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

	return &RekognitionComparer{
		client:    rekognition.NewFromConfig(awsConfig),
		bucket:    cfg.S3Bucket,
		threshold: threshold,
	}, nil
}

// Compare runs CompareFaces between two objects in the bucket and returns
// the best of possibly multiple detected-face matches
func (c *RekognitionComparer) Compare(ctx context.Context, sourceKey, targetKey string) (float64, bool, error) {
	out, err := c.client.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage: &types.Image{
			S3Object: &types.S3Object{
				Bucket: aws.String(c.bucket),
				Name:   aws.String(sourceKey),
			},
		},
		TargetImage: &types.Image{
			S3Object: &types.S3Object{
				Bucket: aws.String(c.bucket),
				Name:   aws.String(targetKey),
			},
		},
		SimilarityThreshold: aws.Float32(float32(c.threshold)),
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to compare %s against %s: %w", sourceKey, targetKey, err)
	}

	var best float64
	found := false
	for _, match := range out.FaceMatches {
		if match.Similarity == nil {
			continue
		}
		if s := float64(*match.Similarity); !found || s > best {
			best = s
			found = true
		}
	}
	return best, found, nil
}
