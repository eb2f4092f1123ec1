package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/Albinjegus10/mobilechat/internal/storage"
)

func TestLoginStoresServerIdentity(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login/", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "alice", req.Username)
		require.Equal(t, "secret", req.Password)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok","access_token":"tok-1","user_id":17,"username":"Alice"}`))
	}))
	defer srv.Close()

	creds, err := Login(context.Background(), srv.URL, "alice", "secret")
	require.NoError(t, err)
	require.Equal(t, "tok-1", creds.Token)
	require.Equal(t, "Alice", creds.Username)
	require.Equal(t, "17", creds.UserID)
}

func TestLoginFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"bad credentials", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusUnauthorized)
			},
		},
		{
			"no token in response", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"message":"ok"}`))
			},
		},
		{
			"garbage response", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := Login(context.Background(), srv.URL, "alice", "secret")
			require.Error(t, err)
		})
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"sub": "17",
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestFileTokenProviderReflectsRotation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	p := &FileTokenProvider{Path: path}

	_, err := p.Token(context.Background())
	require.Error(t, err)

	valid := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, storage.SaveCredentials(path, storage.Credentials{Token: valid, Username: "alice"}))

	got, err := p.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, valid, got)

	// A rotated credential takes effect on the next call with no restart.
	rotated := signedToken(t, time.Now().Add(2*time.Hour))
	require.NoError(t, storage.SaveCredentials(path, storage.Credentials{Token: rotated, Username: "alice"}))

	got, err = p.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, rotated, got)
}

func TestFileTokenProviderRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	expired := signedToken(t, time.Now().Add(-time.Hour))
	require.NoError(t, storage.SaveCredentials(path, storage.Credentials{Token: expired, Username: "alice"}))

	p := &FileTokenProvider{Path: path}
	_, err := p.Token(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "expired")
}

func TestFileTokenProviderPassesOpaqueTokens(t *testing.T) {
	t.Parallel()

	// DRF-style tokens are not JWTs; they pass through untouched.
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, storage.SaveCredentials(path, storage.Credentials{Token: "opaque-token", Username: "alice"}))

	p := &FileTokenProvider{Path: path}
	got, err := p.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "opaque-token", got)
}

func TestTokenExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()

	expired, err := tokenExpired(signedToken(t, now.Add(-time.Minute)), now)
	require.NoError(t, err)
	require.True(t, expired)

	expired, err = tokenExpired(signedToken(t, now.Add(time.Minute)), now)
	require.NoError(t, err)
	require.False(t, expired)

	_, err = tokenExpired("not-a-jwt", now)
	require.Error(t, err)
}
