package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/tanujbhatia24/capstone-herovired/internal/util"
)

// Per-call timeout so a stalled S3 call cannot stall the polling cadence.
const callTimeout = 2 * time.Minute

// Store is a thin client over one S3 bucket.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	logger   *zap.Logger
}

// New creates a Store for the given bucket using the SDK default credential
// chain. A custom endpoint can be set via AWS_ENDPOINT_URL for LocalStack.
func New(ctx context.Context, bucket, region string, logger *zap.Logger) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	awsCfg, err := util.NewAWSConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // Required for LocalStack
			logger.Info("Using custom S3 endpoint", zap.String("endpoint", endpoint))
		}
	})

	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		logger:   logger,
	}, nil
}

// ListKeys returns all object keys under the prefix, sorted by key name.
// Daily CSV keys embed the date, so key order is date order.
func (s *Store) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects under %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Get fetches the full contents of one object.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

// Put writes an object, using multipart upload automatically for large bodies.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}

	s.logger.Debug("Object written",
		zap.String("key", key),
		zap.Int("size", len(body)))
	return nil
}
