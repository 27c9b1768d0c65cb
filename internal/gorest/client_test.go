package gorest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", nil)

	assert.Equal(t, "http://localhost:8080", client.BaseURL)
	assert.NotNil(t, client.HTTPClient)
	assert.Equal(t, FormatJSON, client.Format)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XML ")
	require.NoError(t, err)
	assert.Equal(t, FormatXML, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestClient_SetAuth(t *testing.T) {
	client := NewClient("http://test", zap.NewNop())
	client.SetAuth("token123")

	assert.Equal(t, "Bearer token123", client.Headers["Authorization"])

	anon := client.WithToken("")
	_, ok := anon.Headers["Authorization"]
	assert.False(t, ok)
	assert.Equal(t, "Bearer token123", client.Headers["Authorization"], "copy must not touch the original")
}

func TestClient_HTTP_Methods(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"method":       r.Method,
			"path":         r.URL.Path,
			"body":         string(body),
			"auth":         r.Header.Get("Authorization"),
			"request_id":   r.Header.Get(HeaderRequestID),
			"content_type": r.Header.Get("Content-Type"),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop()).WithToken("secret")
	ctx := context.Background()

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions} {
		resp, err := client.Do(ctx, Request{Method: method, Path: "/test"})
		require.NoError(t, err, method)

		var data map[string]string
		require.NoError(t, resp.JSON(&data))
		assert.Equal(t, method, data["method"])
		assert.Equal(t, "Bearer secret", data["auth"])
		assert.NotEmpty(t, data["request_id"])
		assert.Equal(t, data["request_id"], resp.RequestID)
	}

	resp, err := client.POST(ctx, "/test", UserParams{Name: "jim", Email: "jim@mail.com"})
	require.NoError(t, err)
	var data map[string]string
	require.NoError(t, resp.JSON(&data))
	assert.JSONEq(t, `{"name":"jim","email":"jim@mail.com"}`, data["body"])
	assert.Equal(t, "application/json", data["content_type"])
}

func TestClient_ResourcePaths(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r.Method+" "+r.URL.RequestURI())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx := context.Background()
	xml := NewClient(server.URL+"/public/v2", zap.NewNop()).WithFormat(FormatXML)

	_, _ = xml.GetUser(ctx, 5)
	_, _ = xml.ListUsers(ctx, ListOptions{Page: 2, PerPage: 100})
	_, _ = xml.ListPosts(ctx, Filter("user_id", 5))
	_, _ = xml.CreateUserTodo(ctx, 5, TodoParams{Title: "t"})
	_, _ = xml.ListPostComments(ctx, 9, Filter("id", 3))
	_, _ = xml.DeleteUser(ctx, 5)
	_, _ = xml.WithFormat(FormatJSON).UpdateUser(ctx, 5, UserParams{Status: "inactive"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"GET /public/v2/users/5.xml",
		"GET /public/v2/users.xml?page=2&per_page=100",
		"GET /public/v2/posts.xml?user_id=5",
		"POST /public/v2/users/5/todos.xml",
		"GET /public/v2/posts/9/comments.xml?id=3",
		"DELETE /public/v2/users/5",
		"PATCH /public/v2/users/5",
	}, seen)
}

func TestClient_Metrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/limited" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	metrics := NewMetrics()
	client := NewClient(server.URL, zap.NewNop(), WithMetrics(metrics))
	ctx := context.Background()

	_, err := client.GET(ctx, "/ok")
	require.NoError(t, err)
	_, err = client.GET(ctx, "/limited")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestCounter.WithLabelValues("GET", "json", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitHits))
}

func TestClient_Pacing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop(), WithPacing(1, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.GET(ctx, "/")
	require.NoError(t, err)
	_, err = client.GET(ctx, "/")
	assert.Error(t, err, "second request must wait longer than the deadline")
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop(), WithTimeout(20*time.Millisecond))

	_, err := client.GET(context.Background(), "/")
	assert.Error(t, err)
}
