// Package r2 hands finished downloads to Cloudflare R2 as short-lived
// objects that clients fetch through presigned URLs.
package r2

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// KeyPrefix scopes every handoff object so sweeps never touch other data in
// the bucket.
const KeyPrefix = "handoff/"

// Config holds configuration for the R2 client.
type Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string        // Overrides the account endpoint (S3-compatible servers)
	PublicURL       string        // Public bucket domain; when set, URLs are not presigned
	PresignExpiry   time.Duration // Lifetime of handoff URLs
}

// Client uploads, signs and expires handoff objects.
type Client struct {
	s3Client      *s3.Client
	bucketName    string
	publicURL     string
	presignExpiry time.Duration
}

// NewClient creates a new R2 client.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("incomplete R2 configuration")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	slog.Info("R2 handoff enabled",
		"bucket", cfg.BucketName,
		"endpoint", endpoint,
		"url_expiry", expiry,
	)

	return &Client{
		s3Client:      s3Client,
		bucketName:    cfg.BucketName,
		publicURL:     strings.TrimRight(cfg.PublicURL, "/"),
		presignExpiry: expiry,
	}, nil
}

// ObjectKey returns the handoff key for a download token and file extension.
func ObjectKey(token, ext string) string {
	return path.Join(KeyPrefix, token+ext)
}

// Publish uploads the file and returns a URL that saves it as fileName. The
// URL is presigned unless a public bucket URL is configured.
func (c *Client) Publish(ctx context.Context, key, filePath, fileName, contentType string) (string, error) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
	if err := c.upload(ctx, key, filePath, contentType, disposition); err != nil {
		return "", err
	}

	if c.publicURL != "" {
		return c.publicURL + "/" + key, nil
	}

	signer := s3.NewPresignClient(c.s3Client)
	req, err := signer.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign handoff URL: %w", err)
	}

	return req.URL, nil
}

func (c *Client) upload(ctx context.Context, key, filePath, contentType, disposition string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(c.bucketName),
		Key:                aws.String(key),
		Body:               f,
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(disposition),
		ContentLength:      aws.Int64(stat.Size()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}

	slog.Debug("Handoff object uploaded",
		"key", key,
		"size", stat.Size(),
		"content_type", contentType,
	)
	return nil
}

// DeleteOlderThan removes handoff objects last modified before now-age and
// returns how many were deleted.
func (c *Client) DeleteOlderThan(ctx context.Context, age time.Duration) (int, error) {
	threshold := time.Now().Add(-age)
	deleted := 0

	pages := s3.NewListObjectsV2Paginator(c.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucketName),
		Prefix: aws.String(KeyPrefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("failed to list handoff objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil || !obj.LastModified.Before(threshold) {
				continue
			}
			_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(c.bucketName),
				Key:    obj.Key,
			})
			if err != nil {
				slog.Warn("Failed to delete handoff object", "key", *obj.Key, "error", err)
				continue
			}
			deleted++
		}
	}

	return deleted, nil
}
