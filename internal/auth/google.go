package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smilyweb/config"
)

const (
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"
)

// GoogleTokens is what the token endpoint returns for an authorization
// code.
type GoogleTokens struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token"`
}

// GoogleProfile is the upstream identity mapped onto a local user.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// GoogleClient exchanges an OAuth authorization code for an upstream
// identity.
type GoogleClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string
	userInfoURL  string
	httpClient   *http.Client
}

func NewGoogleClient(cfg *config.Config) *GoogleClient {
	return &GoogleClient{
		clientID:     cfg.GoogleClientID,
		clientSecret: cfg.GoogleClientSecret,
		redirectURI:  cfg.GoogleRedirectURI,
		tokenURL:     defaultTokenURL,
		userInfoURL:  defaultUserInfoURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoints overrides the upstream URLs. Used by tests.
func (g *GoogleClient) WithEndpoints(tokenURL, userInfoURL string) *GoogleClient {
	g.tokenURL = tokenURL
	g.userInfoURL = userInfoURL
	return g
}

// ExchangeCode trades the authorization code for the upstream token set.
func (g *GoogleClient) ExchangeCode(ctx context.Context, code string) (*GoogleTokens, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"redirect_uri":  {g.redirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("google token exchange failed: status %d: %s", res.StatusCode, body)
	}

	var tokens GoogleTokens
	if err := json.NewDecoder(res.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}
	return &tokens, nil
}

// FetchProfile loads the upstream user record for the exchanged tokens.
func (g *GoogleClient) FetchProfile(ctx context.Context, idToken, accessToken string) (*GoogleProfile, error) {
	endpoint := fmt.Sprintf("%s?alt=json&access_token=%s", g.userInfoURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+idToken)

	res, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google userinfo fetch failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("google userinfo fetch failed: status %d", res.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(res.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("google userinfo fetch failed: %w", err)
	}
	return &profile, nil
}
