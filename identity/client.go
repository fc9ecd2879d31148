// Package identity is the typed client for the WorkNest identity service.
// Tokens returned by the service are opaque bearer strings; the client never
// parses or verifies them.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/users"
)

// maxResponseSize bounds response bodies read into memory.
const maxResponseSize = 1 << 20

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LoginRequest is the credential payload for Login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for Register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
}

// ResetPasswordRequestBody asks the service to mail a reset link.
type ResetPasswordRequestBody struct {
	Email string `json:"email"`
}

// ResetPasswordBody carries the new password for a reset token.
type ResetPasswordBody struct {
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// Credentials is the token triple issued on login and refresh. ExpiresIn is
// kept as delivered by the server; the client persists it verbatim and never
// schedules on it.
type Credentials struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    json.Number `json:"expiresIn"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Credentials
	User users.User `json:"user"`
}

// AuthorizeResponse is the body of a successful who-am-I check.
type AuthorizeResponse struct {
	User users.User `json:"user"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ResetPasswordResponse acknowledges a completed password reset.
type ResetPasswordResponse struct {
	Success bool `json:"success"`
}

// Client calls the identity service.
type Client struct {
	baseURL    string
	httpClient Doer
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

// NewClient creates an identity client for the service at baseURL.
func NewClient(baseURL string, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("[identity.NewClient] baseURL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a token pair and the account user record.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new account. The caller must log in afterwards; no
// credentials are issued here.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new credential triple.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var resp Credentials
	if err := c.post(ctx, "/auth/refresh", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Authorize performs the who-am-I check with the given bearer token.
func (c *Client) Authorize(ctx context.Context, accessToken string) (*AuthorizeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/authorize", nil)
	if err != nil {
		return nil, fmt.Errorf("[identity.Authorize] build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var resp AuthorizeResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPasswordRequest asks the service to start a password reset for email.
func (c *Client) ResetPasswordRequest(ctx context.Context, email string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.post(ctx, "/auth/reset-password-request", ResetPasswordRequestBody{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword completes a password reset using the mailed token.
func (c *Client) ResetPassword(ctx context.Context, token string, body ResetPasswordBody) (*ResetPasswordResponse, error) {
	var resp ResetPasswordResponse
	path := "/auth/reset-password/" + url.PathEscape(token)
	if err := c.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("[identity.Client] marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("[identity.Client] build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierror.Transport(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return apierror.Transport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apierror.FromResponse(resp.StatusCode, b)
		c.logger.Debug().
			Str("path", req.URL.Path).
			Int("status", resp.StatusCode).
			Str("kind", apiErr.Kind.String()).
			Msg("identity request rejected")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("[identity.Client] decode response: %w", err)
	}
	return nil
}
