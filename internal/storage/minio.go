package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type MinioGateway struct {
	cfg    MinioConfig
	client *minio.Client
}

func NewMinio(cfg MinioConfig) (*MinioGateway, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioGateway{cfg: cfg, client: cl}, nil
}

func (g *MinioGateway) EnsureBucket(ctx context.Context) error {
	exists, err := g.client.BucketExists(ctx, g.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return g.client.MakeBucket(ctx, g.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (g *MinioGateway) Store(ctx context.Context, r io.Reader, size int64, suggestedName, contentType string) (string, error) {
	key := ObjectKey(suggestedName, time.Now())
	_, err := g.client.PutObject(ctx, g.cfg.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (g *MinioGateway) URLFor(ctx context.Context, locator string, ttl time.Duration, downloadName string) (string, error) {
	params := make(url.Values)
	if downloadName != "" {
		params.Set("response-content-disposition", contentDisposition(downloadName))
	}
	u, err := g.client.PresignedGetObject(ctx, g.cfg.Bucket, locator, ttl, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (g *MinioGateway) Delete(ctx context.Context, locator string) error {
	return g.client.RemoveObject(ctx, g.cfg.Bucket, locator, minio.RemoveObjectOptions{})
}

func (g *MinioGateway) PingContext(ctx context.Context) error {
	_, err := g.client.BucketExists(ctx, g.cfg.Bucket)
	return err
}
