package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
	handler "github.com/atinyakov/GophTally/internal/server/handler/http"
)

// fakeCounterService records calls and returns preconfigured results.
type fakeCounterService struct {
	calls   []string
	amount  int64
	patch   models.CounterPatch
	created models.Counter
	err     error
}

func (f *fakeCounterService) List(context.Context, string) ([]models.Counter, error) {
	f.calls = append(f.calls, "list")
	return []models.Counter{{ID: "c1", Name: "Push-ups", Count: 7}}, f.err
}
func (f *fakeCounterService) Create(_ context.Context, _ string, c models.Counter) (string, error) {
	f.calls = append(f.calls, "create")
	f.created = c
	return "new-id", f.err
}
func (f *fakeCounterService) Update(_ context.Context, _ string, _ string, p models.CounterPatch) error {
	f.calls = append(f.calls, "update")
	f.patch = p
	return f.err
}
func (f *fakeCounterService) Increment(_ context.Context, _ string, _ string, amount int64) error {
	f.calls = append(f.calls, "increment")
	f.amount = amount
	return f.err
}
func (f *fakeCounterService) Delete(context.Context, string, string) error {
	f.calls = append(f.calls, "delete")
	return f.err
}
func (f *fakeCounterService) BatchUpdate(context.Context, string, []models.CounterUpdate) error {
	f.calls = append(f.calls, "batch")
	return f.err
}
func (f *fakeCounterService) Replace(context.Context, string, []models.Counter) error {
	f.calls = append(f.calls, "replace")
	return f.err
}

func counterRouter(svc handler.CounterService) http.Handler {
	h := &handler.CounterHandler{CounterService: svc}
	r := chi.NewRouter()
	r.Get("/api/counters", h.List)
	r.Post("/api/counters", h.Create)
	r.Put("/api/counters", h.Replace)
	r.Patch("/api/counters/{id}", h.Update)
	r.Post("/api/counters/{id}/increment", h.Increment)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) domainerrors.Error {
	t.Helper()
	var e domainerrors.Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestCounterHandler_BadJSON(t *testing.T) {
	fake := &fakeCounterService{}
	w := serve(counterRouter(fake), http.MethodPost, "/api/counters", "not-a-json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domainerrors.CodeInvalidArgument, decodeError(t, w).Code)
	assert.Empty(t, fake.calls)
}

func TestCounterHandler_Create(t *testing.T) {
	fake := &fakeCounterService{}
	w := serve(counterRouter(fake), http.MethodPost, "/api/counters", `{"name":"Push-ups","count":3,"labels":["l1"]}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"new-id"}`, w.Body.String())
	assert.Equal(t, "Push-ups", fake.created.Name)
	assert.EqualValues(t, 3, fake.created.Count)
	assert.Equal(t, []string{"l1"}, fake.created.Labels)
}

func TestCounterHandler_Increment(t *testing.T) {
	fake := &fakeCounterService{}
	r := counterRouter(fake)

	w := serve(r, http.MethodPost, "/api/counters/c1/increment", `{"amount":-1}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.EqualValues(t, -1, fake.amount)

	w = serve(r, http.MethodPost, "/api/counters/c1/increment", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCounterHandler_PatchKeepsAbsentFields(t *testing.T) {
	fake := &fakeCounterService{}
	w := serve(counterRouter(fake), http.MethodPatch, "/api/counters/c1", `{"count":0}`)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, fake.patch.Count)
	assert.EqualValues(t, 0, *fake.patch.Count)
	assert.Nil(t, fake.patch.Name)
	assert.Nil(t, fake.patch.Labels)
}

func TestCounterHandler_ServiceErrorMapsToStatus(t *testing.T) {
	fake := &fakeCounterService{err: domainerrors.NotFound("counter not found: c9")}
	w := serve(counterRouter(fake), http.MethodPatch, "/api/counters/c9", `{"name":"x"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, domainerrors.CodeNotFound, e.Code)
	assert.Equal(t, "counter not found: c9", e.Message)
}

func TestCounterHandler_ReplaceRequiresList(t *testing.T) {
	fake := &fakeCounterService{}
	r := counterRouter(fake)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPut, "/api/counters", `{}`).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPut, "/api/counters", `{"counters":[]}`).Code)
	assert.Equal(t, []string{"replace"}, fake.calls)
}

func TestCounterHandler_List(t *testing.T) {
	w := serve(counterRouter(&fakeCounterService{}), http.MethodGet, "/api/counters", "")

	require.Equal(t, http.StatusOK, w.Code)
	var got []models.Counter
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "c1", got[0].ID)
}
