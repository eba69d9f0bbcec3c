package klaviyo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:  server.URL,
		APIKey:   "pk_test_123",
		Revision: "2023-10-15",
		Timeout:  5 * time.Second,
		PageSize: 200,
	}, NewFixedDelayPacer(0), nil)

	return client, server
}

func TestClient_AuthHeaders(t *testing.T) {
	var gotAuth, gotRevision, gotContentType, gotAccept string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRevision = r.Header.Get("revision")
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("accept")
		w.Write([]byte(`{"data":[]}`))
	}))

	_, err := client.do(context.Background(), http.MethodGet, "/metrics/", nil, nil, false)
	require.NoError(t, err)
	require.Equal(t, "Klaviyo-API-Key pk_test_123", gotAuth)
	require.Equal(t, "2023-10-15", gotRevision)
	require.Empty(t, gotContentType)
	require.Empty(t, gotAccept)
}

func TestClient_JSONAPIHeaders(t *testing.T) {
	var gotContentType, gotAccept string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("accept")
		w.Write([]byte(`{"data":[]}`))
	}))

	_, err := client.do(context.Background(), http.MethodGet, "/events/", nil, nil, true)
	require.NoError(t, err)
	require.Equal(t, "application/vnd.api+json", gotContentType)
	require.Equal(t, "application/vnd.api+json", gotAccept)
}

func TestClient_NonSuccessStatusIsProviderError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"detail":"throttled"}]}`, http.StatusTooManyRequests)
	}))

	_, err := client.do(context.Background(), http.MethodGet, "/metrics/", nil, nil, false)
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
	require.Contains(t, provErr.Body, "throttled")
}

func TestClient_NetworkFailureIsProviderError(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := client.do(context.Background(), http.MethodGet, "/metrics/", nil, nil, false)
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Error(t, provErr.Err)
}

// stubDoer satisfies HTTPDoer without touching the network.
type stubDoer struct {
	requests []*http.Request
	resp     *http.Response
	err      error
}

func (d *stubDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	return d.resp, d.err
}

func TestClient_SetHTTPClient(t *testing.T) {
	client := NewClient(Config{
		BaseURL:  "https://a.klaviyo.com/api",
		APIKey:   "pk_test_123",
		Revision: "2023-10-15",
	}, nil, nil)

	doer := &stubDoer{err: errors.New("dial refused")}
	client.SetHTTPClient(doer)

	_, err := client.do(context.Background(), http.MethodGet, "/metrics/", nil, nil, false)
	require.Error(t, err)

	require.Len(t, doer.requests, 1, "injected doer must receive the request")
	require.Equal(t, "https://a.klaviyo.com/api/metrics/", doer.requests[0].URL.String())

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	require.ErrorContains(t, provErr.Err, "dial refused")
}

func TestFixedDelayPacer_ZeroDelayReturnsImmediately(t *testing.T) {
	pacer := NewFixedDelayPacer(0)

	start := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestFixedDelayPacer_CancelledContext(t *testing.T) {
	pacer := NewFixedDelayPacer(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pacer.Wait(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}
