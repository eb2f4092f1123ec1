package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Albinjegus10/mobilechat/internal/wire"
	"github.com/Albinjegus10/mobilechat/pkg/logger"
)

// defaultPageSize is the history page size requested when none is
// configured.
const defaultPageSize = 50

// HistoryFetcher retrieves past messages for a room, one page at a time.
//
// The fetcher itself is stateless; the owning session holds the pagination
// cursor and enforces the one-fetch-in-flight guard.
type HistoryFetcher struct {
	baseURL  string
	pageSize int
	tokens   TokenProvider
	client   *http.Client
}

// NewHistoryFetcher creates a fetcher against the given REST base URL.
func NewHistoryFetcher(baseURL string, pageSize int, tokens TokenProvider, client *http.Client) *HistoryFetcher {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HistoryFetcher{
		baseURL:  baseURL,
		pageSize: pageSize,
		tokens:   tokens,
		client:   client,
	}
}

// FetchPage loads one page of history for room.
//
// An empty cursor requests the most recent page; otherwise strictly older
// messages than the cursor instant are requested. It returns the page
// (most recent first, as served) and the cursor for the next older page.
// The next cursor is empty when the page was empty, which leaves the
// caller's cursor unchanged.
func (f *HistoryFetcher) FetchPage(ctx context.Context, room, cursor string) ([]Message, string, error) {
	token, err := f.tokens.Token(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("history credential: %w", err)
	}

	values := url.Values{}
	values.Set("room", room)
	values.Set("limit", strconv.Itoa(f.pageSize))
	if cursor != "" {
		values.Set("before", cursor)
	}
	endpoint := fmt.Sprintf("%s/api/messages/?%s", f.baseURL, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("history fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("history read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("history fetch failed: status %d", resp.StatusCode)
	}

	records, err := wire.DecodeHistoryPage(body)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	messages := make([]Message, 0, len(records))
	for _, record := range records {
		m, err := MessageFromRecord(record, room, now)
		if err != nil {
			logger.Warnf("history: dropping malformed record in room %s: %v", room, err)
			continue
		}
		messages = append(messages, m)
	}

	next := ""
	if len(messages) > 0 {
		// Server ordering is most recent first; the last entry is the oldest
		// loaded and becomes the cursor for the next older page.
		next = messages[len(messages)-1].Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return messages, next, nil
}
