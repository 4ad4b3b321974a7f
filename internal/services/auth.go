package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/promptlist/internal/shared"
	"golang.org/x/oauth2"
)

// TokenProvider owns the catalog credential lifecycle: acquire, validate, refresh and clear.
//
// It implements [oauth2.TokenSource] so a [SpotifyService] can authenticate through it directly.
type TokenProvider struct {
	config    *oauth2.Config
	mu        sync.Mutex
	token     *oauth2.Token
	onRefresh func(*oauth2.Token)
}

// NewTokenProvider creates a provider seeded with the tokens stored in cfg.
func NewTokenProvider(cfg shared.SpotifyConfig) *TokenProvider {
	p := &TokenProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes: []string{
				"user-read-private",
				"user-library-read",
				"user-top-read",
				"playlist-read-private",
				"playlist-read-collaborative",
				"playlist-modify-public",
				"playlist-modify-private",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
	}
	if cfg.AccessToken != "" || cfg.RefreshToken != "" {
		p.token = &oauth2.Token{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
			TokenType:    "Bearer",
		}
	}
	return p
}

// SetTokenURL points refreshes at a different token endpoint.
func (p *TokenProvider) SetTokenURL(tokenURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Endpoint.TokenURL = tokenURL
}

// OnRefresh registers fn to receive every refreshed token, e.g. to persist it.
func (p *TokenProvider) OnRefresh(fn func(*oauth2.Token)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRefresh = fn
}

// AuthCodeURL returns the consent page URL for the authorization code flow.
func (p *TokenProvider) AuthCodeURL(state string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token, which becomes the current token.
func (p *TokenProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	p.mu.Lock()
	config := p.config
	p.mu.Unlock()

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange failed: %v", shared.ErrAuthRequired, err)
	}

	p.mu.Lock()
	p.token = token
	notify := p.onRefresh
	p.mu.Unlock()
	if notify != nil {
		notify(token)
	}
	return token, nil
}

// Set replaces the current token.
func (p *TokenProvider) Set(token *oauth2.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

// Clear forgets the current token.
func (p *TokenProvider) Clear() {
	p.Set(nil)
}

// Authenticated reports whether a token (valid or refreshable) is held.
func (p *TokenProvider) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token != nil && (p.token.AccessToken != "" || p.token.RefreshToken != "")
}

// Token implements [oauth2.TokenSource].
func (p *TokenProvider) Token() (*oauth2.Token, error) {
	return p.current(context.Background())
}

// AccessToken returns a valid bearer token, refreshing it when expired.
func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	tok, err := p.current(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (p *TokenProvider) current(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == nil {
		return nil, shared.ErrAuthRequired
	}
	if p.token.Valid() {
		return p.token, nil
	}
	if p.token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: access token expired", shared.ErrAuthRequired)
	}

	refreshed, err := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: p.token.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh failed: %v", shared.ErrAuthRequired, err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = p.token.RefreshToken
	}
	p.token = refreshed
	if p.onRefresh != nil {
		p.onRefresh(refreshed)
	}
	return refreshed, nil
}
