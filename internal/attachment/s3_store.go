package attachment

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds S3-compatible object storage configuration
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
	PathStyle bool
}

func (c S3Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 region is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("s3 credentials are required")
	}
	return nil
}

// S3Store implements Store using S3-compatible object storage
type S3Store struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Store creates a new S3-backed attachment store
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3Store{
		client: s3.New(s3.Options{}, opts...),
		cfg:    cfg,
	}, nil
}

// Upload implements Store
func (s *S3Store) Upload(ctx context.Context, deliveryID, attachmentID int, fileName string, data []byte) (string, error) {
	key := objectKey(deliveryID, attachmentID, fileName)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimeTypeFor(fileName)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload attachment to s3: %w", err)
	}

	return key, nil
}

// Get implements Store
func (s *S3Store) Get(ctx context.Context, storagePath string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(storagePath),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get attachment from s3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read attachment body: %w", err)
	}

	mimeType := "application/octet-stream"
	if out.ContentType != nil {
		mimeType = *out.ContentType
	}

	return data, mimeType, nil
}

// Delete implements Store
func (s *S3Store) Delete(ctx context.Context, storagePath string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(storagePath),
	})
	if err != nil {
		return fmt.Errorf("failed to delete attachment from s3: %w", err)
	}
	return nil
}

// Bucket implements Store
func (s *S3Store) Bucket() string {
	return s.cfg.Bucket
}
