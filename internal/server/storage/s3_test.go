package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graduationparty/auth-service/internal/apperror"
	"github.com/graduationparty/auth-service/internal/logging"
	"github.com/graduationparty/auth-service/internal/server/config"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testStore(t *testing.T, baseEndpoint string) *S3Store {
	t.Helper()
	return &S3Store{
		client:       &s3.Client{},
		bucket:       "auth-service",
		region:       "us-east-1",
		baseEndpoint: strings.TrimSuffix(baseEndpoint, "/"),
		log:          discardLogger(),
	}
}

func TestNewS3Store_ConfiguresEndpointOverride(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	cfg := &config.Config{
		S3RootUser:        "admin",
		S3RootPassword:    "secretpassword",
		S3Bucket:          "auth-service",
		S3Region:          "us-east-1",
		S3BaseEndpoint:    "http://127.0.0.1:9000/",
		HTTPClientTimeout: 5 * time.Second,
	}

	store, err := NewS3Store(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000/", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://127.0.0.1:9000", store.baseEndpoint)
}

func TestNewS3Store_ConfigLoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("boom")
	}

	_, err := NewS3Store(context.Background(), &config.Config{}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load aws config")
}

func TestS3Store_Upload(t *testing.T) {
	origPut := putObject
	t.Cleanup(func() { putObject = origPut })

	var gotInput *s3.PutObjectInput
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		gotInput = in
		return &s3.PutObjectOutput{}, nil
	}

	store := testStore(t, "http://127.0.0.1:9000/")

	url, err := store.Upload(context.Background(), []byte("img-bytes"), "image/png", "profile-photos/alice")
	require.NoError(t, err)

	require.NotNil(t, gotInput)
	assert.Equal(t, "auth-service", *gotInput.Bucket)
	assert.True(t, strings.HasPrefix(*gotInput.Key, "profile-photos/alice/"))
	assert.Equal(t, "image/png", *gotInput.ContentType)

	assert.Equal(t, "http://127.0.0.1:9000/auth-service/"+*gotInput.Key, url)
}

func TestS3Store_Upload_PutError(t *testing.T) {
	origPut := putObject
	t.Cleanup(func() { putObject = origPut })

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return nil, errors.New("connection refused")
	}

	store := testStore(t, "http://127.0.0.1:9000/")

	_, err := store.Upload(context.Background(), []byte("x"), "image/png", "profile-photos/alice")
	require.Error(t, err)
	assert.True(t, apperror.IsIO(err))
}

func TestS3Store_ObjectURL_WithoutEndpointOverride(t *testing.T) {
	store := testStore(t, "")

	url := store.objectURL("profile-photos/alice/abc")
	assert.Equal(t, "https://auth-service.s3.us-east-1.amazonaws.com/profile-photos/alice/abc", url)
}
