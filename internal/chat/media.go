package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"
)

// Uploader posts image attachments for a room.
type Uploader struct {
	baseURL string
	tokens  TokenProvider
	client  *http.Client
}

// NewUploader creates an uploader against the given REST base URL.
func NewUploader(baseURL string, tokens TokenProvider, client *http.Client) *Uploader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Uploader{baseURL: baseURL, tokens: tokens, client: client}
}

// Upload sends one image as a multipart form ("image" file part plus a
// "room" field). The response body is not decoded: the session refetches
// the newest history page after an upload instead of trusting the echo.
func (u *Uploader) Upload(ctx context.Context, room, filename string, r io.Reader) error {
	token, err := u.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("upload credential: %w", err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if err := form.WriteField("room", room); err != nil {
		return err
	}
	if err := form.Close(); err != nil {
		return err
	}

	endpoint := u.baseURL + "/api/messages/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Token "+token)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("upload read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload failed: status %d", resp.StatusCode)
	}
	return nil
}
