package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/provider"
	"golang.org/x/oauth2"
)

const (
	deviceCodeEndpoint  = "/oauth/device/code"
	deviceTokenEndpoint = "/oauth/device/token"
)

var (
	// ErrDeviceCodeExpired indicates the code expired or was already used
	ErrDeviceCodeExpired = errors.New("device code expired")

	// ErrAccessDenied indicates the user declined the authorization
	ErrAccessDenied = errors.New("authorization denied")
)

// AuthClient runs the trakt device-code login flow
type AuthClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	requester    *provider.Requester
	logger       *slog.Logger
	now          func() time.Time
}

// NewAuthClient creates a new authentication client
func NewAuthClient(baseURL, clientID, clientSecret string, logger *slog.Logger) *AuthClient {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &AuthClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		requester:    provider.NewRequester(ProviderName+"-auth", 0, logger),
		logger:       logger,
		now:          time.Now,
	}
}

func (a *AuthClient) post(ctx context.Context, path string, body any, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", a.clientID)
	return a.requester.Do(ctx, req, dest)
}

// GetDeviceCode starts a login. The user enters UserCode at VerificationURL.
func (a *AuthClient) GetDeviceCode(ctx context.Context) (*DeviceCode, error) {
	var code DeviceCode
	err := a.post(ctx, deviceCodeEndpoint, map[string]string{"client_id": a.clientID}, &code)
	if err != nil {
		return nil, err
	}
	a.logger.Info("device code generated", "userCode", code.UserCode, "expiresIn", code.ExpiresIn)
	return &code, nil
}

// CheckDeviceCode polls once. It returns a nil token while the user has
// not yet approved the code; slowDown is set when trakt asks us to poll
// less often.
func (a *AuthClient) CheckDeviceCode(ctx context.Context, deviceCode string) (token *oauth2.Token, slowDown bool, err error) {
	body := map[string]string{
		"code":          deviceCode,
		"client_id":     a.clientID,
		"client_secret": a.clientSecret,
	}
	var resp TokenResponse
	err = a.post(ctx, deviceTokenEndpoint, body, &resp)
	if err == nil {
		a.logger.Info("device code approved")
		return MapToken(resp, a.now()), false, nil
	}

	var remote *domain.RemoteError
	if !errors.As(err, &remote) {
		return nil, false, err
	}
	switch remote.Status {
	case http.StatusBadRequest:
		return nil, false, nil // Pending approval
	case http.StatusTooManyRequests:
		return nil, true, nil
	case http.StatusNotFound, http.StatusConflict, http.StatusGone:
		return nil, false, ErrDeviceCodeExpired
	case http.StatusTeapot:
		return nil, false, ErrAccessDenied
	}
	return nil, false, err
}

// WaitForToken polls until the user approves the code, the code expires or
// ctx is done.
func (a *AuthClient) WaitForToken(ctx context.Context, code *DeviceCode) (*oauth2.Token, error) {
	interval := time.Duration(code.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := a.now().Add(time.Duration(code.ExpiresIn) * time.Second)

	for a.now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
			token, slowDown, err := a.CheckDeviceCode(ctx, code.DeviceCode)
			if err != nil {
				if errors.Is(err, ErrDeviceCodeExpired) || errors.Is(err, ErrAccessDenied) {
					return nil, err
				}
				a.logger.Warn("device code check error, retrying", "error", err)
				continue
			}
			if token != nil {
				return token, nil
			}
			if slowDown {
				interval += time.Second
			}
		}
	}

	return nil, ErrDeviceCodeExpired
}
