package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/angelmondragon/gigbridge-backend/pkg/config"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Client issues presigned uploads against an S3-compatible bucket.
type Client struct {
	minio      *minio.Client
	bucket     string
	publicBase *url.URL
}

func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("storage endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}

	base, err := publicBaseURL(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{minio: mc, bucket: cfg.Bucket, publicBase: base}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"endpoint": cfg.Endpoint,
			"bucket":   cfg.Bucket,
		}), "object storage client initialized")
	}
	return c, nil
}

// publicBaseURL resolves where uploaded objects are readable from. Without an
// explicit CDN base the bucket is addressed path-style on the endpoint.
func publicBaseURL(cfg config.StorageConfig) (*url.URL, error) {
	raw := strings.TrimSpace(cfg.PublicBaseURL)
	if raw == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		raw = fmt.Sprintf("%s://%s/%s", scheme, strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing storage public base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("storage public base url must be http(s), got %q", raw)
	}
	return u, nil
}

// PresignedPutURL returns a URL the browser can PUT the object body to.
func (c *Client) PresignedPutURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := c.minio.PresignedPutObject(ctx, c.bucket, key, expires)
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return u.String(), nil
}

// ObjectURL is the durable reference stored on discussions and content.
func (c *Client) ObjectURL(key string) string {
	return objectURL(c.publicBase, key)
}

func objectURL(base *url.URL, key string) string {
	u := *base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(key, "/")
	return u.String()
}

// Ping checks the configured bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.minio == nil {
		return errors.New("object storage client not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	exists, err := c.minio.BucketExists(pingCtx, c.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %q: %w", c.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", c.bucket)
	}
	return nil
}
