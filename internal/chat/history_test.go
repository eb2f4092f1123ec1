package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHistoryFetcherRequestsAndCursor(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/messages/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{
			"room":   r.URL.Query().Get("room"),
			"limit":  r.URL.Query().Get("limit"),
			"before": r.URL.Query().Get("before"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":2,"content":"newer","sender_name":"bob","timestamp":"2024-03-01T12:01:00Z"},
			{"id":1,"content":"older","sender_name":"alice","timestamp":"2024-03-01T12:00:00Z"}
		]`))
	}))
	defer srv.Close()

	f := NewHistoryFetcher(srv.URL, 25, StaticToken("tok-1"), srv.Client())
	page, next, err := f.FetchPage(context.Background(), "7", "")
	require.NoError(t, err)

	require.Equal(t, "Token tok-1", gotAuth)
	require.Equal(t, "7", gotQuery["room"])
	require.Equal(t, "25", gotQuery["limit"])
	require.Empty(t, gotQuery["before"])

	require.Len(t, page, 2)
	require.Equal(t, "2", page[0].ID)
	require.Equal(t, "1", page[1].ID)

	// Cursor points at the oldest loaded message.
	require.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339Nano), next)

	_, _, err = f.FetchPage(context.Background(), "7", next)
	require.NoError(t, err)
	require.Equal(t, next, gotQuery["before"])
}

func TestHistoryFetcherEmptyPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := NewHistoryFetcher(srv.URL, 0, StaticToken("tok"), srv.Client())
	page, next, err := f.FetchPage(context.Background(), "7", "")
	require.NoError(t, err)
	require.Empty(t, page)
	require.Empty(t, next)
}

func TestHistoryFetcherDropsMalformedRecords(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The middle record has neither body nor attachment.
		_, _ = w.Write([]byte(`[
			{"id":3,"content":"ok","sender_name":"alice","timestamp":"2024-03-01T12:02:00Z"},
			{"id":2,"sender_name":"bob","timestamp":"2024-03-01T12:01:00Z"},
			{"id":1,"content":"also ok","sender_name":"alice","timestamp":"2024-03-01T12:00:00Z"}
		]`))
	}))
	defer srv.Close()

	f := NewHistoryFetcher(srv.URL, 50, StaticToken("tok"), srv.Client())
	page, _, err := f.FetchPage(context.Background(), "7", "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "3", page[0].ID)
	require.Equal(t, "1", page[1].ID)
}

func TestHistoryFetcherErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHistoryFetcher(srv.URL, 50, StaticToken("tok"), srv.Client())
	_, _, err := f.FetchPage(context.Background(), "7", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 500")

	f = NewHistoryFetcher(srv.URL, 50, TokenFunc(func(context.Context) (string, error) {
		return "", context.DeadlineExceeded
	}), srv.Client())
	_, _, err = f.FetchPage(context.Background(), "7", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "credential")
}
