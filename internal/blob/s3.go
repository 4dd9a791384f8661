// Package blob adapts the two image storage backends: the S3-compatible
// object store where new uploads land, and the local-disk fallback that
// still holds images from before the object-store migration.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"equiptrack/internal/common"
)

// Seams for tests: the S3 calls are routed through package-level variables
// so unit tests can substitute fakes without a live endpoint.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	headBucket = func(c *s3.Client, ctx context.Context, in *s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
		return c.HeadBucket(ctx, in)
	}
)

// now is replaceable in tests to pin the timestamp part of object keys.
var now = time.Now

// S3Options configures the object-store connection.
type S3Options struct {
	Endpoint string // S3-compatible base endpoint, e.g. "http://127.0.0.1:9000/"
	Region   string
	User     string // MINIO_ROOT_USER
	Password string // MINIO_ROOT_PASSWORD
	Bucket   string
}

// S3Store uploads image blobs to an S3-compatible object store and issues
// durable public URLs for stored keys.
type S3Store struct {
	client *s3.Client
	opts   S3Options
}

// UploadResult describes one stored blob.
type UploadResult struct {
	Key  string
	URL  string
	Size int64
}

// NewS3Store builds the store client with static credentials against the
// configured endpoint (path-style addressing, as MinIO expects).
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.User,
			opts.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Store{client: client, opts: opts}, nil
}

// ObjectKey builds the storage key for one image:
// <namespace>/<unix-milli-timestamp>-<seq>.<subtype>. The timestamp keeps
// repeat uploads for the same namespace and index from landing on the same
// key.
func ObjectKey(namespace string, seq int, subtype string) string {
	return fmt.Sprintf("%s/%d-%d.%s", namespace, now().UnixMilli(), seq, subtype)
}

// Upload stores data under a fresh key in the configured bucket. The put is
// conditional (If-None-Match: *): a key collision fails with
// common.ErrorUploadConflict instead of silently replacing the existing
// object.
func (s *S3Store) Upload(ctx context.Context, data []byte, namespace string, seq int, subtype string) (*UploadResult, error) {
	key := ObjectKey(namespace, seq, subtype)

	_, err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/" + subtype),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return nil, fmt.Errorf("%w: key %s already exists", common.ErrorUploadConflict, key)
		}
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &UploadResult{
		Key:  key,
		URL:  s.PublicURL(key),
		Size: int64(len(data)),
	}, nil
}

// PublicURL returns the durable path-style URL for a stored key.
func (s *S3Store) PublicURL(key string) string {
	return strings.TrimSuffix(s.opts.Endpoint, "/") + "/" + s.opts.Bucket + "/" + key
}

// Ready reports whether the bucket is reachable.
func (s *S3Store) Ready(ctx context.Context) bool {
	_, err := headBucket(s.client, ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.opts.Bucket),
	})
	return err == nil
}
