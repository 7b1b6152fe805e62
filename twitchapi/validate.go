// Package twitchapi checks the bot's Twitch chat token against the Twitch
// identity service before the IRC connection is attempted.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
)

const defaultBaseURL = "https://id.twitch.tv"

// ErrInvalidToken is returned when Twitch rejects the token outright.
var ErrInvalidToken = errors.New("twitch token is invalid or expired")

// ChatScopes are the scopes a user token needs to read and send chat.
var ChatScopes = []string{"chat:read", "chat:edit"}

// TokenInfo is the validate endpoint response.
type TokenInfo struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// ExpiresAt converts ExpiresIn to an absolute time. Zero means no expiry.
func (ti *TokenInfo) ExpiresAt(now time.Time) time.Time {
	if ti.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(ti.ExpiresIn) * time.Second)
}

// MissingScopes returns the entries of want the token was not granted.
func (ti *TokenInfo) MissingScopes(want ...string) []string {
	var missing []string
	for _, s := range want {
		if !slices.Contains(ti.Scopes, s) {
			missing = append(missing, s)
		}
	}
	return missing
}

// Validator calls GET /oauth2/validate.
type Validator struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Validate looks up token. A leading "oauth:" (IRC password form) is accepted.
func (v *Validator) Validate(ctx context.Context, token string) (*TokenInfo, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "oauth:")
	if token == "" {
		return nil, errors.New("missing twitch token")
	}
	base := v.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	hc := v.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/oauth2/validate", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+token)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("twitch validate failed: %s: %s", resp.Status, string(b))
	}
	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode validate response: %w", err)
	}
	return &info, nil
}
