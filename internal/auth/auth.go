// Package auth implements the login flow and the credential provider used
// by room sessions.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Albinjegus10/mobilechat/internal/storage"
	"github.com/Albinjegus10/mobilechat/internal/wire"
)

const loginTimeout = 15 * time.Second

// Login authenticates against the server and returns the stored-shape
// credentials.
func Login(ctx context.Context, serverURL, username, password string) (storage.Credentials, error) {
	body, err := json.Marshal(wire.LoginRequest{Username: username, Password: password})
	if err != nil {
		return storage.Credentials{}, err
	}

	endpoint := serverURL + "/login/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return storage.Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: loginTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return storage.Credentials{}, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return storage.Credentials{}, fmt.Errorf("login read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return storage.Credentials{}, fmt.Errorf("login failed: status %d", resp.StatusCode)
	}

	var decoded wire.LoginResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return storage.Credentials{}, fmt.Errorf("parse login response: %w", err)
	}
	if decoded.AccessToken == "" {
		return storage.Credentials{}, fmt.Errorf("login response carried no token")
	}

	name := decoded.Username
	if name == "" {
		name = username
	}
	return storage.Credentials{
		Token:    decoded.AccessToken,
		Username: name,
		UserID:   decoded.UserID.String(),
	}, nil
}

// FileTokenProvider yields the token from the credentials file on every
// call, so a token rotated by a fresh login takes effect on the next
// connection attempt without restarting sessions.
type FileTokenProvider struct {
	// Path is the credentials file location.
	Path string
}

// Token implements chat.TokenProvider.
func (p *FileTokenProvider) Token(ctx context.Context) (string, error) {
	creds, err := storage.LoadCredentials(p.Path)
	if err != nil {
		return "", fmt.Errorf("not logged in: %w", err)
	}
	if creds.Token == "" {
		return "", fmt.Errorf("not logged in")
	}
	if expired, err := tokenExpired(creds.Token, time.Now()); err == nil && expired {
		return "", fmt.Errorf("access token expired; log in again")
	}
	return creds.Token, nil
}

// tokenExpired inspects the JWT exp claim without verifying the signature.
// The server remains authoritative; this only produces a clearer client
// error than a connection-level 401. Tokens without a parsable exp are
// passed through.
func tokenExpired(token string, now time.Time) (bool, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, fmt.Errorf("no exp claim")
	}
	return now.After(exp.Time), nil
}
