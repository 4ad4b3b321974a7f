package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/promptlist/internal/shared"
	"golang.org/x/oauth2"
)

func TestTokenProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty provider requires auth", func(t *testing.T) {
		p := NewTokenProvider(shared.SpotifyConfig{ClientID: "id"})
		if p.Authenticated() {
			t.Error("expected provider without tokens to be unauthenticated")
		}
		if _, err := p.AccessToken(ctx); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("Static access token", func(t *testing.T) {
		p := NewTokenProvider(shared.SpotifyConfig{AccessToken: "abc"})
		tok, err := p.AccessToken(ctx)
		if err != nil || tok != "abc" {
			t.Fatalf("expected abc, got %q (%v)", tok, err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		p := NewTokenProvider(shared.SpotifyConfig{AccessToken: "abc"})
		p.Clear()
		if _, err := p.Token(); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired after Clear, got %v", err)
		}
	})

	t.Run("Expired without refresh token", func(t *testing.T) {
		p := NewTokenProvider(shared.SpotifyConfig{})
		p.Set(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)})
		if _, err := p.AccessToken(ctx); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("Refreshes with refresh token", func(t *testing.T) {
		calls := 0
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh" {
				t.Errorf("unexpected form %v", r.Form)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
		}))
		defer ts.Close()

		p := NewTokenProvider(shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"})
		p.SetTokenURL(ts.URL)

		var persisted *oauth2.Token
		p.OnRefresh(func(tok *oauth2.Token) { persisted = tok })

		tok, err := p.AccessToken(ctx)
		if err != nil || tok != "fresh" {
			t.Fatalf("expected fresh token, got %q (%v)", tok, err)
		}
		if persisted == nil || persisted.RefreshToken != "refresh" {
			t.Errorf("expected refresh callback with preserved refresh token, got %+v", persisted)
		}

		if _, err := p.AccessToken(ctx); err != nil {
			t.Fatalf("expected cached token, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected a single refresh, got %d", calls)
		}
	})

	t.Run("Refresh failure requires auth", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		defer ts.Close()

		p := NewTokenProvider(shared.SpotifyConfig{ClientID: "id", RefreshToken: "revoked"})
		p.SetTokenURL(ts.URL)

		if _, err := p.AccessToken(ctx); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("Drives SpotifyService", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"id":"u1"}`))
		}))
		defer api.Close()

		p := NewTokenProvider(shared.SpotifyConfig{AccessToken: "abc"})
		srv := NewSpotifyService(api.URL, p, nil)
		if _, err := srv.UserProfile(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestTokenProviderExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores the exchanged token", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.Form.Get("grant_type") != "authorization_code" || r.Form.Get("code") != "the-code" {
				t.Errorf("unexpected form %v", r.Form)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"new","refresh_token":"keep","token_type":"Bearer","expires_in":3600}`))
		}))
		defer ts.Close()

		p := NewTokenProvider(shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://127.0.0.1:3000/callback"})
		p.SetTokenURL(ts.URL)
		var saved *oauth2.Token
		p.OnRefresh(func(tok *oauth2.Token) { saved = tok })

		if _, err := p.Exchange(ctx, "the-code"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !p.Authenticated() || saved == nil || saved.RefreshToken != "keep" {
			t.Errorf("expected token to be stored and reported, got %+v", saved)
		}
	})

	t.Run("Failed exchange requires auth", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		defer ts.Close()

		p := NewTokenProvider(shared.SpotifyConfig{ClientID: "id"})
		p.SetTokenURL(ts.URL)
		if _, err := p.Exchange(ctx, "bad"); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("AuthCodeURL carries state and scopes", func(t *testing.T) {
		p := NewTokenProvider(shared.SpotifyConfig{ClientID: "id"})
		u := p.AuthCodeURL("xyz")
		if !strings.Contains(u, "state=xyz") || !strings.Contains(u, "playlist-modify-private") {
			t.Errorf("unexpected auth url %s", u)
		}
	})
}
