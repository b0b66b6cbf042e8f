package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/config"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
)

// ProviderGitHub names the GitHub identity provider.
const ProviderGitHub = "github"

const defaultGitHubAPI = "https://api.github.com"

// IdentityProvider performs the hosted sign-in handshake with a third party.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (*models.Identity, error)
}

// GitHubIdentityProvider signs users in through GitHub OAuth2.
type GitHubIdentityProvider struct {
	clientID     string
	clientSecret string
	scopes       []string
	endpoint     oauth2.Endpoint
	apiBase      string
	httpClient   *http.Client
	logger       *zap.Logger
}

// GitHubOption customises the GitHub provider.
type GitHubOption func(*GitHubIdentityProvider)

// WithGitHubEndpoints points the provider at alternate OAuth and REST endpoints.
func WithGitHubEndpoints(endpoint oauth2.Endpoint, apiBase string) GitHubOption {
	return func(p *GitHubIdentityProvider) {
		p.endpoint = endpoint
		p.apiBase = strings.TrimRight(apiBase, "/")
	}
}

// WithGitHubHTTPClient overrides the HTTP client used for token exchange and profile lookups.
func WithGitHubHTTPClient(client *http.Client) GitHubOption {
	return func(p *GitHubIdentityProvider) { p.httpClient = client }
}

// NewGitHubIdentityProvider constructs the provider from OAuth settings.
func NewGitHubIdentityProvider(cfg config.OAuthConfig, logger *zap.Logger, opts ...GitHubOption) *GitHubIdentityProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &GitHubIdentityProvider{
		clientID:     cfg.GitHubClientID,
		clientSecret: cfg.GitHubClientSecret,
		scopes:       cfg.Scopes,
		endpoint:     github.Endpoint,
		apiBase:      defaultGitHubAPI,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements IdentityProvider.
func (p *GitHubIdentityProvider) Name() string { return ProviderGitHub }

// AuthCodeURL returns the GitHub consent URL that sends the browser back to redirectURL.
func (p *GitHubIdentityProvider) AuthCodeURL(state, redirectURL string) string {
	return p.oauthConfig(redirectURL).AuthCodeURL(state)
}

// Exchange trades the authorisation code for a token and loads the user's profile.
func (p *GitHubIdentityProvider) Exchange(ctx context.Context, code, redirectURL string) (*models.Identity, error) {
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing authorization code")
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	conf := p.oauthConfig(redirectURL)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "github sign-in failed")
	}
	client := conf.Client(ctx, token)

	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}

	email := user.Email
	if email == "" {
		email, err = p.primaryEmail(ctx, client)
		if err != nil {
			// Private addresses are optional; the session still works without one.
			p.logger.Warn("github primary email lookup failed", zap.String("login", user.Login), zap.Error(err))
		}
	}

	return &models.Identity{
		Provider: ProviderGitHub,
		Subject:  strconv.FormatInt(user.ID, 10),
		Login:    user.Login,
		Name:     user.Name,
		Email:    email,
	}, nil
}

func (p *GitHubIdentityProvider) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     p.endpoint,
		RedirectURL:  redirectURL,
		Scopes:       p.scopes,
	}
}

func (p *GitHubIdentityProvider) primaryEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (p *GitHubIdentityProvider) getJSON(ctx context.Context, client *http.Client, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build github request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "github profile request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return appErrors.Wrap(fmt.Errorf("github %s: status %d", path, resp.StatusCode), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "github profile request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid github profile response")
	}
	return nil
}
