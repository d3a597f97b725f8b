package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"social-service/config"
)

// Object is a single upload request.
type Object struct {
	Bucket      string
	Key         string
	Body        []byte
	ContentType string
	Public      bool
}

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage uploads objects and returns their public locator.
type S3Storage struct {
	client  S3API
	region  string
	baseURL string
}

// NewS3Client builds an S3 client from the default AWS credential chain,
// or static keys when configured.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewS3Storage wraps client. Locators are built from cfg.PublicBaseURL
// (path style, "<base>/<bucket>/<key>") when set, otherwise from the
// virtual-hosted AWS endpoint.
func NewS3Storage(client S3API, cfg config.S3Config) *S3Storage {
	base := cfg.PublicBaseURL
	if base == "" && cfg.Endpoint != "" {
		base = cfg.Endpoint
	}
	return &S3Storage{
		client:  client,
		region:  cfg.Region,
		baseURL: strings.TrimRight(base, "/"),
	}
}

func (s *S3Storage) Upload(ctx context.Context, obj Object) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(obj.Bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Body),
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(int64(len(obj.Body))),
	}
	if obj.Public {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", obj.Bucket, obj.Key, err)
	}
	return s.Locator(obj.Bucket, obj.Key), nil
}

// Delete removes the object named by a locator returned from Upload or by
// a bare key.
func (s *S3Storage) Delete(ctx context.Context, bucket, locator string) error {
	key := s.KeyFromLocator(bucket, locator)
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *S3Storage) Locator(bucket, key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.baseURL, bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, key)
}

func (s *S3Storage) KeyFromLocator(bucket, locator string) string {
	if !strings.Contains(locator, "://") {
		return strings.TrimPrefix(locator, "/")
	}
	u, err := url.Parse(locator)
	if err != nil {
		return ""
	}
	path := strings.TrimPrefix(u.Path, "/")
	if s.baseURL != "" || !strings.HasPrefix(u.Host, bucket+".") {
		path = strings.TrimPrefix(path, bucket+"/")
	}
	return path
}
