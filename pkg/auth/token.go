package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mchmarny/hireable/pkg/net"
)

const (
	// DefaultClientID is the OAuth app used for the device flow when no
	// client ID is configured (githubClientID or HIREABLE_GITHUB_CLIENT_ID).
	DefaultClientID = "f1b500ebdf533aa8a3e2"

	deviceCodeURL = "https://github.com/login/device/code"
	accessCodeURL = "https://github.com/login/oauth/access_token"
	deviceScopes  = "" // public profile and repository data only
	grantType     = "urn:ietf:params:oauth:grant-type:device_code"

	defaultInterval = 5 * time.Second
	slowDownStep    = 5 * time.Second
)

var (
	ErrAccessDenied = errors.New("authorization denied by user")
	ErrCodeExpired  = errors.New("device code expired")
)

type DeviceCode struct {
	// 40 character code used to verify the device.
	DeviceCode string `json:"device_code,omitempty"`
	// 8 character code with a hyphen the user enters in the browser.
	UserCode        string `json:"user_code,omitempty"`
	VerificationURL string `json:"verification_uri,omitempty"`
	// Seconds until both codes expire, 900 by default.
	ExpiresInSec int `json:"expires_in,omitempty"`
	// Minimum seconds between token polls.
	Interval int `json:"interval,omitempty"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// DeviceFlow runs the GitHub OAuth device authorization grant.
type DeviceFlow struct {
	ClientID      string
	DeviceCodeURL string
	TokenURL      string
	Client        *http.Client
}

// NewDeviceFlow returns a flow against github.com.
// NewDeviceFlow uses DefaultClientID when clientID is empty.
func NewDeviceFlow(clientID string) *DeviceFlow {
	if clientID == "" {
		clientID = DefaultClientID
	}
	return &DeviceFlow{
		ClientID:      clientID,
		DeviceCodeURL: deviceCodeURL,
		TokenURL:      accessCodeURL,
	}
}

func (f *DeviceFlow) client() (*http.Client, error) {
	if f.Client != nil {
		return f.Client, nil
	}
	return net.GetHTTPClient()
}

func (f *DeviceFlow) post(ctx context.Context, endpoint string, form url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client, err := f.client()
	if err != nil {
		return fmt.Errorf("failed to get http client: %w", err)
	}

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		net.PrintHTTPResponse(res)
		body := ""
		if b, err := io.ReadAll(res.Body); err == nil {
			body = string(b)
		}
		return fmt.Errorf("unexpected response: %s - %s - %s", res.Status, endpoint, body)
	}

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetDeviceCode starts the flow and returns the code to show the user.
func (f *DeviceFlow) GetDeviceCode(ctx context.Context) (*DeviceCode, error) {
	if f.ClientID == "" {
		return nil, errors.New("clientID is required")
	}

	form := url.Values{}
	form.Set("client_id", f.ClientID)
	form.Set("scope", deviceScopes)

	var dc DeviceCode
	if err := f.post(ctx, f.DeviceCodeURL, form, &dc); err != nil {
		return nil, fmt.Errorf("failed to get device code: %w", err)
	}
	if dc.DeviceCode == "" {
		return nil, errors.New("device code is empty")
	}

	return &dc, nil
}

// GetToken exchanges the device code for an access token once.
// A pending authorization returns the response with an empty AccessToken
// and its Error set.
func (f *DeviceFlow) GetToken(ctx context.Context, code *DeviceCode) (*AccessTokenResponse, error) {
	if f.ClientID == "" {
		return nil, errors.New("clientID is required")
	}
	if code == nil {
		return nil, errors.New("device code is nil")
	}

	form := url.Values{}
	form.Set("client_id", f.ClientID)
	form.Set("device_code", code.DeviceCode)
	form.Set("grant_type", grantType)

	var t AccessTokenResponse
	if err := f.post(ctx, f.TokenURL, form, &t); err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	switch t.Error {
	case "":
	case "authorization_pending", "slow_down":
		return &t, nil
	case "access_denied":
		return nil, ErrAccessDenied
	case "expired_token":
		return nil, ErrCodeExpired
	default:
		return nil, fmt.Errorf("device flow error %s: %s", t.Error, t.ErrorDesc)
	}

	if t.AccessToken == "" {
		return nil, errors.New("access token is empty")
	}

	return &t, nil
}

// PollToken polls at the server provided interval until the user
// authorizes the device, the code expires or ctx is done.
func (f *DeviceFlow) PollToken(ctx context.Context, code *DeviceCode) (*AccessTokenResponse, error) {
	if code == nil {
		return nil, errors.New("device code is nil")
	}

	interval := time.Duration(code.Interval) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}

	expiresAt := time.Now().Add(time.Duration(code.ExpiresInSec) * time.Second)

	for {
		t, err := f.GetToken(ctx, code)
		if err != nil {
			return nil, err
		}
		if t.AccessToken != "" {
			return t, nil
		}
		if t.Error == "slow_down" {
			interval += slowDownStep
		}
		if code.ExpiresInSec > 0 && time.Now().After(expiresAt) {
			return nil, ErrCodeExpired
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("waiting for authorization: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
