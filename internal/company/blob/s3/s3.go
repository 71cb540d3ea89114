package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gartstein/companydir/internal/company/blob"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PublicURL       string // Base URL objects are served from; derived from bucket and region when empty
	PublicRead      bool   // Upload objects with a public-read ACL
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type deleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store is an S3 implementation of blob.Store. References are
// PublicURL/key.
type Store struct {
	uploader   uploader
	client     deleter
	bucket     string
	publicURL  string
	publicRead bool
}

// NewStore creates a new S3 blob store
func NewStore(ctx context.Context, config Config) (*Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
	})

	return &Store{
		uploader:   manager.NewUploader(client),
		client:     client,
		bucket:     config.Bucket,
		publicURL:  publicURL(config),
		publicRead: config.PublicRead,
	}, nil
}

func publicURL(config Config) string {
	switch {
	case config.PublicURL != "":
		return config.PublicURL
	case config.Endpoint != "":
		return fmt.Sprintf("%s/%s", config.Endpoint, config.Bucket)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", config.Bucket, config.Region)
	}
}

// Put uploads content directly to S3
func (s *Store) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if err := blob.ValidateKey(key); err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if s.publicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return blob.RefFromKey(s.publicURL, key), nil
}

// Delete deletes the object behind ref from S3
func (s *Store) Delete(ctx context.Context, ref string) error {
	key, err := blob.KeyFromRef(s.publicURL, ref)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
