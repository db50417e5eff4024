package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"renoquote/internal/config"
)

// ObjectPutter is the subset of the S3 client used by S3Store.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes rendered images to S3 or an S3-compatible API.
type S3Store struct {
	client  ObjectPutter
	bucket  string
	region  string
	baseURL string
	prefix  string
}

// NewS3Store uses static keys when configured, else the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg config.MediaConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws sdk config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.ForcePathStyle
		}
	})
	return newS3Store(client, cfg), nil
}

func newS3Store(client ObjectPutter, cfg config.MediaConfig) *S3Store {
	// S3-compatible storage without a public URL is read back through the path-style endpoint.
	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" && cfg.Endpoint != "" && cfg.ForcePathStyle {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
	}
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: publicURL,
		prefix:  strings.Trim(cfg.KeyPrefix, "/"),
	}
}

// Save uploads the image under a random key and returns its public URL.
func (s *S3Store) Save(ctx context.Context, img Image) (Stored, error) {
	if len(img.Data) == 0 {
		return Stored{}, errors.New("image data is required")
	}

	key := s.buildKey(img.MIMEType)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentLength: aws.Int64(int64(len(img.Data))),
	}
	if img.MIMEType != "" {
		input.ContentType = aws.String(img.MIMEType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Stored{}, fmt.Errorf("put object: %w", err)
	}
	return Stored{Key: key, URL: s.objectURL(key)}, nil
}

func (s *S3Store) buildKey(mimeType string) string {
	name := "renders/" + uuid.NewString() + Extension(mimeType)
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Store) objectURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
