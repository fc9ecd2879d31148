// Package files is the typed client for the WorkNest storage service, which
// holds user avatars and task attachments.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/projects"
)

const maxResponseSize = 1 << 20

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// File describes a stored object.
type File struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Client calls the storage service.
type Client struct {
	baseURL    string
	httpClient Doer
	tokens     projects.TokenSource
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.httpClient = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a storage service client.
func NewClient(baseURL string, tokens projects.TokenSource, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("[files.NewClient] baseURL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("[files.NewClient] token source is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		tokens:     tokens,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Upload stores the given content as a multipart upload and returns the file
// record.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) (*File, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", pr)
	if err != nil {
		return nil, fmt.Errorf("[files.Upload] build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierror.Transport(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apierror.Transport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierror.FromResponse(resp.StatusCode, b)
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("[files.Upload] decode response: %w", err)
	}
	return &f, nil
}

// Download streams a stored file. The caller must close the returned reader.
func (c *Client) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return nil, fmt.Errorf("[files.Download] build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierror.Transport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, apierror.FromResponse(resp.StatusCode, b)
	}
	return resp.Body, nil
}

// Delete removes a stored file.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return fmt.Errorf("[files.Delete] build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierror.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return apierror.FromResponse(resp.StatusCode, b)
	}
	return nil
}
