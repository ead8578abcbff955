package provider

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"commwatch/internal/domain"
)

func newTestProvider(url string) *HTTPProvider {
	return NewHTTP(HTTPConfig{
		BaseURL:      url,
		FetchTimeout: time.Second,
		RetryDelay:   time.Millisecond,
	}, log.New(os.Stderr, "", 0))
}

func TestFetchDecodesContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/subjects/subj-1/content", r.URL.Path)
		require.Equal(t, "Bearer tok-a", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"profile": {"subject_id": "subj-1", "handle": "alice", "bio": "building things"},
			"posts": [{"id": "p1", "text": "gm", "community_id": "123456789012345678"}]
		}`))
	}))
	defer srv.Close()

	content, err := newTestProvider(srv.URL).Fetch(context.Background(), "subj-1", domain.Credential{ID: "a", Token: "tok-a"})
	require.NoError(t, err)
	require.Equal(t, "alice", content.Profile.Handle)
	require.Len(t, content.Posts, 1)
	require.Equal(t, "123456789012345678", content.Posts[0].CommunityID)
}

func TestFetchClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{http.StatusUnauthorized, IsAuthExpired, "401 auth expired"},
		{http.StatusForbidden, IsAuthExpired, "403 auth expired"},
		{http.StatusNotFound, IsPermanent, "404 permanent"},
		{http.StatusGone, IsPermanent, "410 permanent"},
		{http.StatusTeapot, IsTransient, "unexpected status transient"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := newTestProvider(srv.URL).Fetch(context.Background(), "subj-1", domain.Credential{})
			require.Error(t, err)
			require.True(t, tc.check(err), "status %d: got %v", tc.status, err)
		})
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"profile": {"handle": "alice"}, "posts": []}`))
	}))
	defer srv.Close()

	p := NewHTTP(HTTPConfig{
		BaseURL:      srv.URL,
		FetchTimeout: time.Second,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
	}, log.New(os.Stderr, "", 0))

	content, err := p.Fetch(context.Background(), "subj-1", domain.Credential{})
	require.NoError(t, err)
	require.Equal(t, "alice", content.Profile.Handle)
	require.Equal(t, int32(2), calls.Load())
}

// closeTrackingBody flags when a response body is closed.
type closeTrackingBody struct {
	io.ReadCloser
	closed *atomic.Bool
}

func (b *closeTrackingBody) Close() error {
	b.closed.Store(true)
	return b.ReadCloser.Close()
}

// trackingTransport wraps every response body so tests can assert closure.
type trackingTransport struct {
	mu     sync.Mutex
	bodies []*atomic.Bool
}

func (tt *trackingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	closed := &atomic.Bool{}
	tt.mu.Lock()
	tt.bodies = append(tt.bodies, closed)
	tt.mu.Unlock()
	resp.Body = &closeTrackingBody{ReadCloser: resp.Body, closed: closed}
	return resp, nil
}

func TestFetchClosesRetriedResponseBodies(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("upstream down"))
			return
		}
		_, _ = w.Write([]byte(`{"profile": {"handle": "alice"}, "posts": []}`))
	}))
	defer srv.Close()

	tt := &trackingTransport{}
	p := NewHTTP(HTTPConfig{
		BaseURL:      srv.URL,
		FetchTimeout: time.Second,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
		Client:       &http.Client{Transport: tt},
	}, log.New(os.Stderr, "", 0))

	_, err := p.Fetch(context.Background(), "subj-1", domain.Credential{})
	require.NoError(t, err)

	tt.mu.Lock()
	defer tt.mu.Unlock()
	require.Len(t, tt.bodies, 2)
	require.True(t, tt.bodies[0].Load(), "the abandoned 503 body must be closed")
	require.True(t, tt.bodies[1].Load(), "the decoded 200 body must be closed")
}

func TestFetchMalformedBodyIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"profile": `))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Fetch(context.Background(), "subj-1", domain.Credential{})
	require.Error(t, err)
	require.True(t, IsTransient(err))
}
