package discord_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/treasury/internal/discord"
)

func fakeDiscord(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /api/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "80351110224678912", "username": "nelly"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestClient_Exchange(t *testing.T) {
	srv := fakeDiscord(t)

	client := discord.New(discord.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		BaseURL:      srv.URL,
	})

	acc, err := client.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "80351110224678912", acc.ID)
	assert.Equal(t, "nelly", acc.Username)

	_, err = client.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestClient_AuthCodeURL(t *testing.T) {
	client := discord.New(discord.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
	})

	raw, err := client.AuthCodeURL("signed-state")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "discord.com", u.Host)
	assert.Equal(t, "signed-state", u.Query().Get("state"))
	assert.Equal(t, "identify", u.Query().Get("scope"))
	assert.Equal(t, "id", u.Query().Get("client_id"))
}

func TestClient_NotConfigured(t *testing.T) {
	client := discord.New(discord.Config{})

	_, err := client.AuthCodeURL("state")
	assert.ErrorIs(t, err, discord.ErrNotConfigured)

	_, err = client.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, discord.ErrNotConfigured)
}
