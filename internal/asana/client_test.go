package asana_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avanrossum/asana-list/internal/asana"
	"github.com/avanrossum/asana-list/internal/clock"
)

func newTestClient(t *testing.T, handler http.Handler) (*asana.Client, *clock.Fake) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	client, err := asana.NewClient(asana.Config{
		BaseURL:    server.URL,
		Credential: asana.StaticToken("secret-token"),
		Clock:      fake,
	})
	require.NoError(t, err)
	return client, fake
}

func TestBearerHeader(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"data": {"gid": "1", "name": "Me", "workspaces": []}}`)
	}))

	_, err := client.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer secret-token", gotAuth)
}

func TestMissingCredentialFailsFast(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	client, err := asana.NewClient(asana.Config{
		BaseURL:    server.URL,
		Credential: asana.StaticToken(""),
	})
	require.NoError(t, err)

	_, err = client.Me(context.Background())
	require.ErrorIs(t, err, asana.ErrNoCredential)
	require.Equal(t, int32(0), requests.Load(), "no request should be issued without a credential")
}

func TestRetryAfterClamped(t *testing.T) {
	var requests atomic.Int32
	client, fake := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.Header().Set("Retry-After", "9999")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data": {"gid": "1", "name": "Me", "workspaces": []}}`)
	}))

	_, err := client.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), requests.Load())
	require.Equal(t, []time.Duration{120 * time.Second}, fake.Waits(),
		"wait must be capped at 120s regardless of Retry-After")
}

func TestRateLimitRetryCeiling(t *testing.T) {
	var requests atomic.Int32
	client, fake := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	require.True(t, asana.IsRateLimited(err))
	require.Equal(t, int32(3), requests.Load(), "no fourth attempt after three consecutive 429s")
	require.Len(t, fake.Waits(), 2)
}

func TestRateLimitBackoffWithoutHeader(t *testing.T) {
	client, fake := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	require.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, fake.Waits())
}

func TestTerminalErrorNoRetry(t *testing.T) {
	var requests atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"errors": [{"message": "server on fire"}]}`)
	}))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	require.Equal(t, int32(1), requests.Load(), "non-429 failures are terminal")

	var apiErr *asana.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 500, apiErr.StatusCode)
	require.Equal(t, "server on fire", apiErr.Message)
}

func TestVerifyCredential(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data": {"gid": "1", "name": "Ada", "workspaces": []}}`)
		}))

		ok, detail, err := client.VerifyCredential(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.Contains(t, detail, "Ada")
	})

	t.Run("invalid token", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"errors": [{"message": "Not Authorized"}]}`)
		}))

		ok, detail, err := client.VerifyCredential(context.Background())
		require.NoError(t, err, "invalid token is the expected failure path, not an error")
		require.False(t, ok)
		require.NotEmpty(t, detail)
	})

	t.Run("no credential", func(t *testing.T) {
		client, err := asana.NewClient(asana.Config{
			BaseURL:    "https://example.invalid",
			Credential: asana.StaticToken(""),
		})
		require.NoError(t, err)

		ok, detail, err := client.VerifyCredential(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
		require.NotEmpty(t, detail)
	})
}
