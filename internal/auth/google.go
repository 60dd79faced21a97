// Package auth handles Google sign-in, session tokens and the sealing of
// stored refresh credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/rongwang/invoice-sheets/internal/models"
)

// Made variables for testing purposes
var (
	revokeURL        = "https://oauth2.googleapis.com/revoke"
	userinfoEndpoint = ""
)

// Scopes requested at consent
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive.file",
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
}

// Identity is the result of a successful code exchange
type Identity struct {
	UserID       string
	Email        string
	Name         string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Provider is the OAuth identity provider
type Provider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
	Revoke(ctx context.Context, token string) error
}

// NewOAuthConfig returns the Google OAuth client configuration
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}

// GoogleProvider implements Provider against Google's OAuth endpoints
type GoogleProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
	log        *slog.Logger
}

// NewGoogleProvider creates a Google identity provider
func NewGoogleProvider(config *oauth2.Config, logger *slog.Logger) *GoogleProvider {
	return &GoogleProvider{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.With("adapter", "google_oauth"),
	}
}

// AuthURL returns the consent page URL. Offline access with forced consent
// makes Google return a refresh token on every sign-in.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens and the account profile
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code: %w", models.ErrMissingParameter)
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		p.log.ErrorContext(ctx, "google oauth token exchange failed", slog.String("error", err.Error()))
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("oauth: invalid or expired code: %w", models.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("oauth: token exchange: %w", models.ErrUpstream)
	}

	opts := []option.ClientOption{option.WithTokenSource(p.config.TokenSource(ctx, token))}
	if userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(userinfoEndpoint))
	}
	srv, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create oauth2 service: %w", err)
	}

	info, err := srv.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		p.log.ErrorContext(ctx, "google oauth userinfo failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("oauth: failed to fetch user info: %w", models.ErrUpstream)
	}
	if info.Id == "" || info.Email == "" {
		return nil, fmt.Errorf("oauth: invalid userinfo response: %w", models.ErrUpstream)
	}

	p.log.DebugContext(ctx, "google oauth success", slog.String("email", info.Email))

	return &Identity{
		UserID:       info.Id,
		Email:        info.Email,
		Name:         info.Name,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// Revoke invalidates an access or refresh token at Google
func (p *GoogleProvider) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	body := url.Values{"token": {token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oauth: revoke: %w", models.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.log.WarnContext(ctx, "google oauth revoke failed", slog.Int("status", resp.StatusCode))
		return fmt.Errorf("oauth: revoke returned %d: %w", resp.StatusCode, models.ErrUpstream)
	}
	return nil
}
