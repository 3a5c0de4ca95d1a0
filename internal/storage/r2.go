// Package storage talks to the S3-compatible object store (Cloudflare R2)
// that holds avatars and post media.
package storage

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

	"connectly/internal/config"
	"connectly/internal/model"
)

// Bucket is one R2 bucket fronted by a public URL.
type Bucket struct {
	client    *s3.Client
	presigner *s3.PresignClient
	name      string
	publicURL string
}

// NewR2Bucket returns model.ErrMediaNotConfigured when any R2 setting is missing.
func NewR2Bucket(ctx context.Context, cfg *config.Config) (*Bucket, error) {
	if !cfg.MediaEnabled() {
		return nil, model.ErrMediaNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://" + cfg.R2AccountID + ".r2.cloudflarestorage.com")
		o.UsePathStyle = true
	})

	return &Bucket{
		client:    client,
		presigner: s3.NewPresignClient(client),
		name:      cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

// URL is the public address of key.
func (b *Bucket) URL(key string) string {
	return b.publicURL + "/" + key
}

// KeyFromURL is the inverse of URL. It reports false for URLs served from
// anywhere else.
func (b *Bucket) KeyFromURL(url string) (string, bool) {
	key := strings.TrimPrefix(url, b.publicURL+"/")
	if key == url || key == "" {
		return "", false
	}
	return key, true
}

func (b *Bucket) Put(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}
	if cacheControl != "" {
		in.CacheControl = aws.String(cacheControl)
	}
	if _, err := b.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("r2 put %s: %w", key, err)
	}
	return nil
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("r2 delete %s: %w", key, err)
	}
	return nil
}

// PresignPut returns a URL the client can PUT the object to directly.
func (b *Bucket) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := b.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("r2 presign %s: %w", key, err)
	}
	return req.URL, nil
}
