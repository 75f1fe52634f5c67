package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DefaultRegion is used when S3Options.Region is empty.
const DefaultRegion = "ap-southeast-2"

const csvContentType = "text/csv"

// S3Options configures the S3 client.
type S3Options struct {
	// Region is the fixed AWS region of the bucket.
	Region string

	// Endpoint overrides the service endpoint for S3-compatible stores
	// (MinIO, LocalStack). Path-style addressing is used when set.
	Endpoint string
}

// s3API is the subset of *s3.Client used by S3.
// Abstracted so tests can inject a fake.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 is a Store backed by Amazon S3.
type S3 struct {
	client s3API
}

// NewS3 builds an S3 store from the ambient AWS credential chain
// (environment, shared config, instance role).
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	slog.Debug("objectstore: s3 client created", "region", region, "endpoint", opts.Endpoint)
	return &S3{client: client}, nil
}

// Put uploads data as a single object, replacing any existing object.
func (s *S3) Put(ctx context.Context, bucket, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(csvContentType),
	})
	if err != nil {
		return "", fmt.Errorf("objectstore: put %s: %w", Location(bucket, key), err)
	}
	return Location(bucket, key), nil
}

// Get downloads the object at bucket/key. A missing key yields ErrNotFound.
func (s *S3) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("objectstore: get %s: %w", Location(bucket, key), ErrNotFound)
		}
		return nil, fmt.Errorf("objectstore: get %s: %w", Location(bucket, key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read %s: %w", Location(bucket, key), err)
	}
	return data, nil
}
