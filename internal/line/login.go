package line

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// APIError is a non-2xx response from a LINE Login endpoint.
type APIError struct {
	StatusCode int
	// Code and Description are filled from OAuth-style error bodies
	// ({"error": ..., "error_description": ...}).
	Code        string
	Description string
	// Message is filled from {"message": ...} bodies.
	Message string
}

func (e *APIError) Error() string {
	switch {
	case e.Description != "":
		return fmt.Sprintf("LINE API error (HTTP %d): %s: %s", e.StatusCode, e.Code, e.Description)
	case e.Message != "":
		return fmt.Sprintf("LINE API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("LINE API error (HTTP %d)", e.StatusCode)
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &body)
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        body.Error,
		Description: body.ErrorDescription,
		Message:     body.Message,
	}
}

// LoginClient verifies LINE Login access tokens presented by end users.
// Calls carry the user's token, not a channel credential.
//
// The bot SDK does not cover the Login endpoints, so these calls use
// net/http directly.
type LoginClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewLoginClient creates a client against the public LINE API host.
func NewLoginClient() *LoginClient {
	return NewLoginClientWithTimeout(defaultTimeout)
}

// NewLoginClientWithTimeout creates a client whose requests give up after
// timeout. Lambda@Edge viewer-request functions run under a 5 second cap
// and need a budget well below it.
func NewLoginClientWithTimeout(timeout time.Duration) *LoginClient {
	return &LoginClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultAPIBaseURL,
	}
}

// NewLoginClientWithBaseURL points the client at another host. Tests use it.
func NewLoginClientWithBaseURL(httpClient *http.Client, baseURL string) *LoginClient {
	return &LoginClient{httpClient: httpClient, baseURL: baseURL}
}

// Timeout reports the per-request timeout, zero meaning none.
func (c *LoginClient) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// TokenInfo is the body of a successful verification.
type TokenInfo struct {
	ClientID  string `json:"client_id"`
	ExpiresIn int64  `json:"expires_in"`
	Scope     string `json:"scope"`
}

// Profile is the public profile of the token's user.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

func (c *LoginClient) verify(ctx context.Context, accessToken string) (*http.Response, error) {
	endpoint := c.baseURL + "/oauth2/v2.1/verify?" + url.Values{"access_token": {accessToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return resp, nil
}

// VerifyToken checks an access token and decodes the token details.
//
//	GET {api}/oauth2/v2.1/verify?access_token={token}
//
// A 400 from LINE (invalid or expired token) is returned as *APIError with
// Code and Description set.
func (c *LoginClient) VerifyToken(ctx context.Context, accessToken string) (*TokenInfo, error) {
	resp, err := c.verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}
	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &info, nil
}

// CheckToken reports whether LINE accepts an access token. Any HTTP 200 is
// success; the body is drained but not decoded.
func (c *LoginClient) CheckToken(ctx context.Context, accessToken string) error {
	resp, err := c.verify(ctx, accessToken)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}

// GetProfile fetches the profile of the token's user.
//
//	GET {api}/v2/profile
func (c *LoginClient) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}
