package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/graduationparty/auth-service/internal/apperror"
	"github.com/graduationparty/auth-service/internal/logging"
	"github.com/graduationparty/auth-service/internal/server/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
)

// S3Store implements FileStore on top of an S3-compatible endpoint
// (AWS S3 proper or MinIO when a base endpoint is configured).
type S3Store struct {
	client       *s3.Client
	bucket       string
	region       string
	baseEndpoint string
	log          logging.Logger
}

func NewS3Store(ctx context.Context, cfg *config.Config, log logging.Logger) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,     // MINIO_ROOT_USER
			cfg.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			// MinIO does not resolve bucket subdomains
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:       client,
		bucket:       cfg.S3Bucket,
		region:       cfg.S3Region,
		baseEndpoint: strings.TrimSuffix(cfg.S3BaseEndpoint, "/"),
		log:          log.With("module", "s3_store"),
	}, nil
}

// Upload stores data under keyPrefix with a random suffix so repeated uploads
// for the same owner never overwrite each other.
func (s *S3Store) Upload(ctx context.Context, data []byte, contentType, keyPrefix string) (string, error) {
	key := fmt.Sprintf("%s/%v", keyPrefix, uuid.New())

	_, err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.log.Error(ctx, "put object failed", "bucket", s.bucket, "key", key, "error", err)
		return "", apperror.NewIO("could not store file", err)
	}

	s.log.Debug(ctx, "uploaded object", "bucket", s.bucket, "key", key, "size", len(data))

	return s.objectURL(key), nil
}

func (s *S3Store) objectURL(key string) string {
	if s.baseEndpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.baseEndpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
