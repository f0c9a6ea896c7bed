package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/GophTally/internal/client/remote"
	"github.com/atinyakov/GophTally/internal/db"
	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
	"github.com/atinyakov/GophTally/internal/ratelimit"
	"github.com/atinyakov/GophTally/internal/repository"
	handler "github.com/atinyakov/GophTally/internal/server/handler/http"
	"github.com/atinyakov/GophTally/internal/server/live"
	"github.com/atinyakov/GophTally/internal/service"
)

// newStack wires the real server over an in-memory sqlite database.
func newStack(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *httptest.Server {
	t.Helper()
	log := zap.NewNop()

	conn, err := db.Open(db.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	tokens, err := service.NewTokenService("", time.Hour)
	require.NoError(t, err)
	hub := live.NewHub(log)
	authSvc := service.NewAuthService(repository.NewAuthRepository(conn), tokens, nil, log)
	counterSvc := service.NewCounterService(repository.NewCounterRepository(conn), hub, log)
	labelSvc := service.NewLabelService(repository.NewLabelRepository(conn), hub, log)
	hub.Register(models.CollectionCounters, counterSvc.Snapshot)
	hub.Register(models.CollectionLabels, labelSvc.Snapshot)

	opts := handler.RouterOptions{Verifier: authSvc}
	if limiter != nil {
		opts.AuthLimiter = limiter
	}
	router := handler.NewRouter(handler.Handlers{
		Auth:      &handler.AuthHandler{AuthService: authSvc},
		Counters:  &handler.CounterHandler{CounterService: counterSvc},
		Labels:    &handler.LabelHandler{LabelService: labelSvc},
		Subscribe: &handler.SubscribeHandler{Hub: hub, Logger: log},
	}, opts, log)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *remote.Client {
	t.Helper()
	c, err := remote.New(srv.URL, srv.Client(), zap.NewNop())
	require.NoError(t, err)
	return c
}

// waitCounters reads snapshots until ok accepts one.
func waitCounters(t *testing.T, events <-chan models.Snapshot, ok func([]models.Counter) bool) []models.Counter {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap := <-events:
			require.NoError(t, snap.Err)
			if ok(snap.Counters) {
				return snap.Counters
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
}

func TestRouter_RemoteClientRoundTrip(t *testing.T) {
	srv := newStack(t, nil)
	client := newClient(t, srv)
	ctx := context.Background()

	id, err := client.SignUp(ctx, "runner@example.com", "secret1", "Runner")
	require.NoError(t, err)
	assert.NotEmpty(t, id.Token)

	events, stop, err := client.Listen(ctx, models.CollectionCounters)
	require.NoError(t, err)
	defer stop()

	waitCounters(t, events, func(c []models.Counter) bool { return len(c) == 0 })

	counterID, err := client.CreateCounter(ctx, models.Counter{Name: "Push-ups"})
	require.NoError(t, err)
	for _, amount := range []int64{1, 1, 1, -1, 5} {
		require.NoError(t, client.IncrementCounter(ctx, counterID, amount))
	}

	got := waitCounters(t, events, func(c []models.Counter) bool { return len(c) == 1 && c[0].Count == 7 })
	assert.Equal(t, counterID, got[0].ID)
	assert.Equal(t, "Push-ups", got[0].Name)

	fetched, err := client.FetchCounters(ctx)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.EqualValues(t, 7, fetched[0].Count)

	require.NoError(t, client.ReplaceCounters(ctx, []models.Counter{{ID: "local", Name: "Water", Count: 2}}))
	got = waitCounters(t, events, func(c []models.Counter) bool { return len(c) == 1 && c[0].Name == "Water" })
	assert.NotEqual(t, "local", got[0].ID)

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "runner@example.com", me.Email)

	prefs, err := client.GetPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreferences(), prefs)
}

func TestRouter_AuthErrors(t *testing.T) {
	srv := newStack(t, nil)
	client := newClient(t, srv)
	ctx := context.Background()

	_, err := client.SignUp(ctx, "a@example.com", "123", "")
	assert.ErrorIs(t, err, domainerrors.ErrWeakPassword)

	_, err = client.SignUp(ctx, "a@example.com", "123456", "")
	require.NoError(t, err)
	_, err = client.SignUp(ctx, "a@example.com", "123456", "")
	assert.ErrorIs(t, err, domainerrors.ErrEmailInUse)

	_, err = client.SignIn(ctx, "a@example.com", "654321")
	assert.ErrorIs(t, err, domainerrors.ErrWrongPassword)
	_, err = client.SignIn(ctx, "nobody@example.com", "654321")
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)

	_, err = client.SignInWithProvider(ctx, "github")
	assert.ErrorIs(t, err, domainerrors.ErrOperationNotAllowed)
}

func TestRouter_SignOutRevokesToken(t *testing.T) {
	srv := newStack(t, nil)
	client := newClient(t, srv)
	ctx := context.Background()

	id, err := client.SignUp(ctx, "a@example.com", "123456", "")
	require.NoError(t, err)
	require.NoError(t, client.SignOut(ctx))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/counters", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+id.Token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_RequiresToken(t *testing.T) {
	srv := newStack(t, nil)

	resp, err := srv.Client().Get(srv.URL + "/api/labels")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_UnknownCollection(t *testing.T) {
	srv := newStack(t, nil)
	client := newClient(t, srv)
	id, err := client.SignUp(context.Background(), "a@example.com", "123456", "")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/subscribe/secrets", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+id.Token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_AuthRateLimited(t *testing.T) {
	limiter := ratelimit.New(0.001, 2, 0)
	defer limiter.Stop()
	srv := newStack(t, limiter)

	var last int
	for i := 0; i < 3; i++ {
		resp, err := srv.Client().Post(srv.URL+"/api/auth/signin", "application/json", strings.NewReader(`{"email":"x@example.com","password":"123456"}`))
		require.NoError(t, err)
		resp.Body.Close()
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
