package youtubeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// Scope required to read and post live chat messages.
const Scope = "https://www.googleapis.com/auth/youtube.force-ssl"

// Default credential file locations, overridable via env.
const (
	defaultClientSecretFile = "client_secret.json"
	defaultTokenFile        = "token.json"
)

// NewService builds an authenticated YouTube service from an installed-app
// OAuth client secret and a previously stored token. Token refresh is
// handled transparently by the oauth2 TokenSource; the refreshed token is
// written back to the token file on a best-effort basis.
func NewService(ctx context.Context) (*yt.Service, error) {
	secretFile := envOr("YT_CLIENT_SECRET_FILE", defaultClientSecretFile)
	tokenFile := envOr("YT_TOKEN_FILE", defaultTokenFile)

	secret, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("read %s (create an OAuth client at console.cloud.google.com and download its JSON): %w", secretFile, err)
	}
	conf, err := google.ConfigFromJSON(secret, Scope)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", secretFile, err)
	}

	tok, err := readToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read %s (run the OAuth authorization flow first): %w", tokenFile, err)
	}

	ts := oauth2.ReuseTokenSource(tok, refreshingSource{conf.TokenSource(ctx, tok), tokenFile})
	svc, err := yt.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func readToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// refreshingSource persists refreshed tokens so the next start reuses them.
type refreshingSource struct {
	src  oauth2.TokenSource
	path string
}

func (r refreshingSource) Token() (*oauth2.Token, error) {
	tok, err := r.src.Token()
	if err != nil {
		return nil, err
	}
	if b, merr := json.Marshal(tok); merr == nil {
		if werr := os.WriteFile(r.path, b, 0o600); werr != nil {
			slog.Warn("token file write failed", slog.Any("err", werr))
		}
	}
	return tok, nil
}
