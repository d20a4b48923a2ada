// Package storage provides the object-storage collaborator: given a
// local file path, upload it and return a public URL.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Config holds the S3-compatible backend settings.
type Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	// PublicBaseURL is the externally reachable prefix objects are
	// served from. Defaults to BaseEndpoint/Bucket.
	PublicBaseURL string
}

// S3Store uploads media files to an S3-compatible bucket.
type S3Store struct {
	cfg    Config
	client *s3.Client
}

// NewS3Store builds the client eagerly so a misconfigured backend fails
// at startup, not on first upload.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Store{cfg: cfg, client: client}, nil
}

// Upload stores the file under a date-partitioned random key and
// returns its public URL.
func (s *S3Store) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	key := randomStorageKey(filepath.Ext(localPath))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	return s.publicURL(key), nil
}

func (s *S3Store) publicURL(key string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("%s/%s", strings.TrimSuffix(s.cfg.BaseEndpoint, "/"), s.cfg.Bucket)
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), key)
}

func randomStorageKey(ext string) string {
	d := time.Now()
	return fmt.Sprintf("media/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}
