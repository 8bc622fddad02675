package target

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestUsersAPI_CRUD(t *testing.T) {
	h := New(Config{}).Handler()

	rec := do(t, h, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/users", `{"name":"TestUser1","email":"testuser1@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[User](t, rec)
	assert.Equal(t, uint64(1), created.ID)
	assert.Equal(t, "TestUser1", created.Name)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodGet, "/api/users/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "testuser1@example.com", decode[User](t, rec).Email)

	rec = do(t, h, http.MethodPut, "/api/users/1", `{"name":"Renamed","email":"r@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decode[User](t, rec).Name)

	rec = do(t, h, http.MethodGet, "/api/users", "")
	users := decode[[]User](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "Renamed", users[0].Name)

	rec = do(t, h, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/users/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsersAPI_Errors(t *testing.T) {
	h := New(Config{}).Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		errMsg string
	}{
		{"create missing email", http.MethodPost, "/api/users", `{"name":"a"}`, http.StatusBadRequest, "name and email are required"},
		{"create bad json", http.MethodPost, "/api/users", `{`, http.StatusBadRequest, "invalid request body"},
		{"get bad id", http.MethodGet, "/api/users/abc", "", http.StatusBadRequest, "invalid id"},
		{"get zero id", http.MethodGet, "/api/users/0", "", http.StatusBadRequest, "invalid id"},
		{"get unknown", http.MethodGet, "/api/users/42", "", http.StatusNotFound, "user not found"},
		{"update unknown", http.MethodPut, "/api/users/42", `{"name":"a","email":"b"}`, http.StatusNotFound, "user not found"},
		{"update invalid", http.MethodPut, "/api/users/1", `{"name":""}`, http.StatusBadRequest, "name and email are required"},
		{"delete unknown", http.MethodDelete, "/api/users/42", "", http.StatusNotFound, "user not found"},
		{"delete bad id", http.MethodDelete, "/api/users/-1", "", http.StatusBadRequest, "invalid id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.errMsg, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, New(Config{}).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	h := New(Config{RateLimit: 1, Burst: 1}).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/users", "").Code)

	rec := do(t, h, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/metrics", "").Code, "/metrics is not rate limited")
}

func TestMetrics(t *testing.T) {
	s := New(Config{})
	h := s.Handler()

	do(t, h, http.MethodGet, "/api/users", "")
	do(t, h, http.MethodGet, "/api/users/99", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, "http_request_duration_seconds_bucket")
	assert.Contains(t, body, "http_errors_total")
	assert.Contains(t, body, `status="404"`)
	assert.NotContains(t, body, "/api/users/99", "paths are labelled by route pattern")

	families, err := s.Metrics().Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(Config{})
		New(Config{})
	})
}

func TestRecoverer(t *testing.T) {
	s := New(Config{})
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := do(t, s.Handler(), http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestServe(t *testing.T) {
	s := New(Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	resp, err := http.Post(url+"/api/users", "application/json",
		bytes.NewBufferString(`{"name":"a","email":"b@example.com"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, s.Store().Len())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServe_BadAddr(t *testing.T) {
	err := New(Config{Addr: "256.0.0.1:bad"}).ListenAndServe(context.Background())
	assert.Error(t, err)
}
