package sdk

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Albinjegus10/mobilechat/internal/auth"
	"github.com/Albinjegus10/mobilechat/internal/storage"
)

// Login authenticates against the server and stores the credentials for
// subsequent sessions. It returns the display username on success.
func (c *Client) Login(username, password string) (string, error) {
	value, err := c.dispatch.call(func() (any, error) {
		return c.login(username, password)
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (c *Client) login(username, password string) (name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic("Login", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	creds, err := auth.Login(context.Background(), c.serverURL(), username, password)
	if err != nil {
		return "", err
	}
	if err := storage.SaveCredentials(c.cfg.CredentialsPath, creds); err != nil {
		return "", err
	}
	logLine(fmt.Sprintf("logged in as %s", creds.Username))
	return creds.Username, nil
}

// Logout discards the stored credentials and tears down open sessions.
func (c *Client) Logout() error {
	c.Shutdown()
	_, err := c.dispatch.call(func() (any, error) {
		return nil, storage.ClearCredentials(c.cfg.CredentialsPath)
	})
	return err
}

// Username returns the stored display name, or "" when not logged in.
func (c *Client) Username() string {
	value, _ := c.dispatch.call(func() (any, error) {
		creds, err := storage.LoadCredentials(c.cfg.CredentialsPath)
		if err != nil {
			return "", nil
		}
		return creds.Username, nil
	})
	name, _ := value.(string)
	return name
}

// doRequest performs an authenticated REST request and returns the body.
func (c *Client) doRequest(ctx context.Context, method, path string) (resp []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic("doRequest", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL()+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+token)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("request failed: status %d", httpResp.StatusCode)
	}
	return body, nil
}
