package httptransport

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"commwatch/internal/credentials"
	"commwatch/internal/diff"
	"commwatch/internal/domain"
	"commwatch/internal/merge"
	"commwatch/internal/provider"
	"commwatch/internal/scheduler"
	"commwatch/internal/snapshot"
)

type providerFunc func(ctx context.Context, subjectID string, cred domain.Credential) (*provider.Content, error)

func (f providerFunc) Fetch(ctx context.Context, subjectID string, cred domain.Credential) (*provider.Content, error) {
	return f(ctx, subjectID, cred)
}

func newTestServer(t *testing.T, auth AuthConfig) (*httptest.Server, *snapshot.MemoryStore) {
	t.Helper()
	logger := log.New(os.Stderr, "", 0)
	store := snapshot.NewMemoryStore()

	p := providerFunc(func(context.Context, string, domain.Credential) (*provider.Content, error) {
		return &provider.Content{
			Profile: provider.Profile{Handle: "alice"},
			Posts:   []provider.Post{{ID: "p1", Text: "gm", CommunityID: "123456789012345678"}},
		}, nil
	})

	worker := &scheduler.Worker{
		Provider:          p,
		Pool:              credentials.NewStaticPool([]domain.Credential{{ID: "a", Token: "tok"}}),
		Lock:              credentials.NewMemoryLock(),
		Store:             store,
		Merger:            merge.New(0, 0, logger),
		Differ:            diff.New(2),
		Log:               logger,
		RotationThreshold: 3,
	}
	registry := scheduler.NewRegistry(worker, scheduler.Config{})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = registry.Shutdown(ctx)
	})

	srv := httptest.NewServer(NewRouter(NewHandler(registry, store, logger), auth))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestSubjectLifecycle(t *testing.T) {
	srv, store := newTestServer(t, AuthConfig{})
	client := srv.Client()

	// Track.
	resp, err := client.Post(srv.URL+"/subjects", "application/json",
		strings.NewReader(`{"subject_id":"subj-1","poll_interval_seconds":3600}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Duplicate tracking conflicts.
	resp, err = client.Post(srv.URL+"/subjects", "application/json",
		strings.NewReader(`{"subject_id":"subj-1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// The first cycle lands a snapshot.
	require.Eventually(t, func() bool {
		_, err := store.Latest(context.Background(), "subj-1")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	resp, err = client.Get(srv.URL + "/subjects/subj-1/snapshot")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// List includes the subject.
	resp, err = client.Get(srv.URL + "/subjects")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Stop, then the subject is gone.
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/subjects/subj-1", nil)
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/subjects/subj-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTrackValidation(t *testing.T) {
	srv, _ := newTestServer(t, AuthConfig{})

	resp, err := srv.Client().Post(srv.URL+"/subjects", "application/json",
		strings.NewReader(`{"poll_interval_seconds":60}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = srv.Client().Post(srv.URL+"/subjects", "application/json",
		strings.NewReader(`{not json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSnapshotNotFound(t *testing.T) {
	srv, _ := newTestServer(t, AuthConfig{})

	resp, err := srv.Client().Get(srv.URL + "/subjects/ghost/snapshot")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAuthSchemes(t *testing.T) {
	secret := []byte("test-secret")
	hash, err := bcrypt.GenerateFromPassword([]byte("machine-key"), bcrypt.MinCost)
	require.NoError(t, err)

	srv, _ := newTestServer(t, AuthConfig{JWTSecret: secret, APIKeyHash: hash})
	client := srv.Client()

	get := func(token string) int {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/subjects", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusUnauthorized, get(""))
	require.Equal(t, http.StatusUnauthorized, get("not-a-token"))

	// Static API key checked against its bcrypt hash.
	require.Equal(t, http.StatusOK, get("machine-key"))

	// Signed JWT.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get(signed))

	// A token signed with another secret is rejected.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, get(forged))

	// Health stays open for probes.
	resp, err := client.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
