package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// s3Client is the subset of the S3 API the backend needs.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Configured reports whether enough settings are present to build a client.
func (c S3Config) Configured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// S3KV stores each key as one JSON object in a bucket.
type S3KV struct {
	client s3Client
	bucket string
	prefix string
}

func NewS3KV(cfg S3Config) (*S3KV, error) {
	if !cfg.Configured() {
		return nil, errors.New("s3 backend requires bucket, access key and secret key")
	}
	return newS3KV(newS3Client(cfg), cfg.Bucket, cfg.Prefix), nil
}

func newS3KV(client s3Client, bucket, prefix string) *S3KV {
	return &S3KV{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (s *S3KV) objectKey(key string) string {
	return path.Join(s.prefix, key+".json")
}

func (s *S3KV) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if isNoSuchKey(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("s3 get %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, fmt.Errorf("s3 read %q: %w", key, err)
	}
	return string(data), true, nil
}

func (s *S3KV) Set(ctx context.Context, key, value string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          strings.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %q: %w", key, err)
	}
	return nil
}

func (s *S3KV) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}
