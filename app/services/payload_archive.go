package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PayloadArchive keeps raw webhook bodies for later inspection
type PayloadArchive interface {
	Store(ctx context.Context, source string, receivedAt time.Time, body []byte) (string, error)
}

// ObjectPutter is the subset of the S3 client used by the archive
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3PayloadArchive writes one object per delivery
type S3PayloadArchive struct {
	client ObjectPutter
	bucket string
	prefix string
}

// S3ArchiveOptions configures the archive client
type S3ArchiveOptions struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// NewS3PayloadArchive builds an S3 client; a custom endpoint switches to path-style addressing
func NewS3PayloadArchive(ctx context.Context, opts S3ArchiveOptions) (*S3PayloadArchive, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3PayloadArchiveWithClient(client, opts.Bucket, opts.Prefix), nil
}

func NewS3PayloadArchiveWithClient(client ObjectPutter, bucket, prefix string) *S3PayloadArchive {
	return &S3PayloadArchive{client: client, bucket: bucket, prefix: prefix}
}

// ObjectKey lays objects out as <prefix><source>/<yyyy>/<mm>/<dd>/<unix>-<uuid>.json
func (a *S3PayloadArchive) ObjectKey(source string, receivedAt time.Time) string {
	t := receivedAt.UTC()
	return fmt.Sprintf("%s%s/%04d/%02d/%02d/%d-%s.json",
		a.prefix, strings.ToLower(source), t.Year(), int(t.Month()), t.Day(), t.Unix(), uuid.NewString())
}

func (a *S3PayloadArchive) Store(ctx context.Context, source string, receivedAt time.Time, body []byte) (string, error) {
	key := a.ObjectKey(source, receivedAt)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s webhook: %w", source, err)
	}
	return key, nil
}

// NoopPayloadArchive discards payloads
type NoopPayloadArchive struct{}

func (NoopPayloadArchive) Store(ctx context.Context, source string, receivedAt time.Time, body []byte) (string, error) {
	return "", nil
}
