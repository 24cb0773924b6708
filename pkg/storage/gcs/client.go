package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"

	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/storage"
)

const (
	defaultBaseURL = "https://storage.googleapis.com"
	scope          = "https://www.googleapis.com/auth/devstorage.read_write"
	pingTimeout    = 5 * time.Second
	maxObjectBytes = 32 << 20
)

// Client talks to the GCS JSON API for a single bucket.
type Client struct {
	httpClient *http.Client
	baseURL    string
	bucket     string
	prefix     string
	logg       *logger.Logger
}

// NewClient builds an authenticated client from service account JSON, a credentials file,
// or application default credentials, then checks bucket access.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, prefix string, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := []option.ClientOption{option.WithScopes(scope)}
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	httpClient, _, err := htransport.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("building gcs http client: %w", err)
	}
	httpClient.Timeout = 30 * time.Second

	client := NewWithHTTPClient(httpClient, defaultBaseURL, cfg.BucketName, prefix, logg)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	logg.Info(ctx, "gcs client initialized")
	return client, nil
}

// NewWithHTTPClient wires a pre-authenticated HTTP client, mainly for tests.
func NewWithHTTPClient(httpClient *http.Client, baseURL, bucket, prefix string, logg *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		prefix:     prefix,
		logg:       logg,
	}
}

func (c *Client) Bucket() string {
	return c.bucket
}

// Ping lists at most one object to confirm the credentials can reach the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.baseURL, url.PathEscape(c.bucket))
	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return err
	}
	c.closeBody(ctx, resp.Body)
	return nil
}

// Put uploads data with a simple media upload and returns the object path.
func (c *Client) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	objectPath := storage.ObjectPath(c.prefix, name)
	if !storage.ValidObjectPath(objectPath) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", objectPath)
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.baseURL, url.PathEscape(c.bucket), q.Encode())

	resp, err := c.do(ctx, http.MethodPost, u, bytes.NewReader(data), contentType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	c.closeBody(ctx, resp.Body)
	return objectPath, nil
}

func (c *Client) Get(ctx context.Context, objectPath string) ([]byte, error) {
	if !storage.ValidObjectPath(objectPath) {
		return nil, storage.ErrNotFound
	}
	resp, err := c.do(ctx, http.MethodGet, c.objectURL(objectPath)+"?alt=media", nil, "")
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("download %s: %w", objectPath, err)
	}
	defer c.closeBody(ctx, resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", objectPath, err)
	}
	return data, nil
}

func (c *Client) Exists(ctx context.Context, objectPath string) (bool, error) {
	if !storage.ValidObjectPath(objectPath) {
		return false, nil
	}
	resp, err := c.do(ctx, http.MethodGet, c.objectURL(objectPath), nil, "")
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	c.closeBody(ctx, resp.Body)
	return true, nil
}

func (c *Client) objectURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.baseURL, url.PathEscape(c.bucket), url.PathEscape(objectPath))
}

// do sends the request and converts non-2xx responses into *googleapi.Error.
func (c *Client) do(ctx context.Context, method, u string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if err := googleapi.CheckResponse(resp); err != nil {
		c.closeBody(ctx, resp.Body)
		return nil, err
	}
	return resp, nil
}

func (c *Client) closeBody(ctx context.Context, body io.Closer) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil {
		c.logg.Warn(ctx, "gcs: closing response body failed")
	}
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
