// Package youtubeapi uploads videos that are too large for chat to YouTube and
// returns a watch link instead. Credentials come from a long-lived refresh
// token in configuration; the access token is refreshed on demand.
package youtubeapi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/teambot/config"
)

// ErrNotConfigured is returned by New when client id, secret or refresh token is missing.
var ErrNotConfigured = errors.New("youtube fallback not configured")

type Uploader struct {
	oauth   *oauth2.Config
	ts      oauth2.TokenSource
	privacy string
}

// OAuthConfig builds the Google OAuth2 client config from cfg. Scopes may be
// comma or space separated.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	scopes := []string{yt.YoutubeUploadScope}
	if fields := strings.Fields(strings.ReplaceAll(cfg.YTScopes, ",", " ")); len(fields) > 0 {
		scopes = fields
	}
	return &oauth2.Config{
		ClientID:     cfg.YTClientID,
		ClientSecret: cfg.YTClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.YTRedirectURI,
		Scopes:       scopes,
	}
}

// New returns an Uploader, or ErrNotConfigured.
func New(cfg *config.Config) (*Uploader, error) {
	if !cfg.YouTubeEnabled() {
		return nil, ErrNotConfigured
	}
	oc := OAuthConfig(cfg)
	privacy := cfg.YTPrivacy
	if privacy == "" {
		privacy = "unlisted"
	}
	return &Uploader{
		oauth: oc,
		// ReuseTokenSource: the access token is cached until it expires.
		ts:      oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.YTRefreshToken}),
		privacy: privacy,
	}, nil
}

// AuthCodeURL returns the consent URL used to mint a refresh token.
func AuthCodeURL(oc *oauth2.Config, state string) string {
	return oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeRefreshToken trades an authorization code for a refresh token.
func ExchangeRefreshToken(ctx context.Context, oc *oauth2.Config, code string) (string, error) {
	tok, err := oc.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if tok.RefreshToken == "" {
		return "", errors.New("no refresh token returned; revoke the app's access and retry")
	}
	return tok.RefreshToken, nil
}

// Client returns an authenticated YouTube service.
func (u *Uploader) Client(ctx context.Context) (*yt.Service, error) {
	return yt.NewService(ctx, option.WithTokenSource(u.ts))
}

// Upload uploads the file at path and returns its watch URL.
func (u *Uploader) Upload(ctx context.Context, path, title, description string) (string, error) {
	svc, err := u.Client(ctx)
	if err != nil {
		return "", fmt.Errorf("youtube client: %w", err)
	}
	return UploadVideo(ctx, svc, path, title, description, u.privacy)
}

// UploadVideo uploads a video file at path with given title/description/privacy using provided YouTube service.
func UploadVideo(ctx context.Context, svc *yt.Service, path, title, description, privacy string) (string, error) {
	if svc == nil {
		return "", errors.New("nil youtube service")
	}
	if privacy == "" {
		privacy = "unlisted"
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{Title: videoTitle(title), Description: description},
		Status:  &yt.VideoStatus{PrivacyStatus: privacy},
	}
	res, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}
	if res.Id == "" {
		return "", errors.New("youtube upload: empty id")
	}
	return "https://www.youtube.com/watch?v=" + res.Id, nil
}

// YouTube rejects titles longer than 100 characters.
const maxTitleRunes = 100

func videoTitle(title string) string {
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		runes = runes[:maxTitleRunes]
	}
	return string(runes)
}
