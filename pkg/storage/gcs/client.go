package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

const (
	pingTimeout       = 5 * time.Second
	defaultPublicBase = "https://storage.googleapis.com"
	cacheControl      = "public, max-age=86400"
)

// Client uploads objects into a single bucket through the JSON API.
type Client struct {
	svc        *storage.Service
	bucket     string
	publicBase string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds the storage service from the configured credentials and verifies the bucket.
// Extra options are appended last, so tests can point the client at a fake endpoint.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := []option.ClientOption{option.WithScopes(storage.DevstorageReadWriteScope)}
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	opts = append(opts, extra...)

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	client := &Client{
		svc:        svc,
		bucket:     cfg.BucketName,
		publicBase: publicBase(cfg),
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}
	return client, nil
}

func publicBase(cfg config.GCSConfig) string {
	if base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"); base != "" {
		return base
	}
	return defaultPublicBase + "/" + cfg.BucketName
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Ping reads the bucket metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.svc == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.svc.Buckets.Get(c.bucket).Context(ctx).Do(); err != nil {
		return fmt.Errorf("get bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Upload streams body into objectName and returns the public URL of the stored object.
func (c *Client) Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	if c == nil || c.svc == nil {
		return "", errors.New("gcs client not initialized")
	}
	objectName = strings.TrimLeft(strings.TrimSpace(objectName), "/")
	if objectName == "" {
		return "", errors.New("object name is required")
	}

	obj := &storage.Object{
		Name:         objectName,
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	stored, err := c.svc.Objects.Insert(c.bucket, obj).
		Name(objectName).
		Media(body, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return c.PublicURL(stored.Name), nil
}

// Delete removes objectName. Missing objects are not an error.
func (c *Client) Delete(ctx context.Context, objectName string) error {
	if c == nil || c.svc == nil {
		return errors.New("gcs client not initialized")
	}
	err := c.svc.Objects.Delete(c.bucket, objectName).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return nil
	}
	return err
}

// PublicURL builds the browser-facing URL for objectName.
func (c *Client) PublicURL(objectName string) string {
	segments := strings.Split(objectName, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.publicBase + "/" + strings.Join(segments, "/")
}

// ObjectName extracts the object path from a URL produced by PublicURL.
func (c *Client) ObjectName(publicURL string) (string, bool) {
	prefix := c.publicBase + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	name, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}
