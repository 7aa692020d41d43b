package fal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelError}))
	c, err := New(Options{
		APIKey:       "fal-key",
		OutputDir:    dir,
		QueueURL:     srv.URL,
		Client:       srv.Client(),
		Logger:       logger,
		PollInterval: time.Millisecond,
		PollBudget:   time.Second,
	})
	require.NoError(t, err)
	return c, dir
}

func TestGenerateQueueFlow(t *testing.T) {
	t.Parallel()

	var statusCalls atomic.Int32
	c, dir := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		host := "http://" + r.Host
		switch r.URL.Path {
		case "/fal-ai/flux-pro/v1.1":
			assert.Equal(t, "Key fal-key", r.Header.Get("Authorization"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a cartoon of a leader", body["prompt"])
			assert.Equal(t, "square_hd", body["image_size"])
			fmt.Fprintf(w, `{"request_id":"req-1","status_url":%q,"response_url":%q}`,
				host+"/status", host+"/result")
		case "/status":
			if statusCalls.Add(1) < 3 {
				w.Write([]byte(`{"status":"IN_QUEUE"}`))
				return
			}
			w.Write([]byte(`{"status":"COMPLETED"}`))
		case "/result":
			fmt.Fprintf(w, `{"images":[{"url":%q}]}`, host+"/render.jpg")
		case "/render.jpg":
			w.Write([]byte("png-bytes"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	path, err := c.Generate(context.Background(), "a cartoon of a leader")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))
	assert.Contains(t, path, "post_image_")
	assert.GreaterOrEqual(t, statusCalls.Load(), int32(3), "polled until completed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestGeneratePollBudgetExceeded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := "http://" + r.Host
		if r.URL.Path == "/fal-ai/flux-pro/v1.1" {
			fmt.Fprintf(w, `{"request_id":"req-1","status_url":%q,"response_url":%q}`,
				host+"/status", host+"/result")
			return
		}
		w.Write([]byte(`{"status":"IN_PROGRESS"}`))
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelError}))
	c, err := New(Options{
		APIKey:       "fal-key",
		OutputDir:    t.TempDir(),
		QueueURL:     srv.URL,
		Client:       srv.Client(),
		Logger:       logger,
		PollInterval: time.Millisecond,
		PollBudget:   20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IN_PROGRESS")
}

func TestGenerateSubmitRejected(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid key"}`))
	})

	_, err := c.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestGenerateNoImages(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		host := "http://" + r.Host
		switch r.URL.Path {
		case "/fal-ai/flux-pro/v1.1":
			fmt.Fprintf(w, `{"request_id":"req-1","status_url":%q,"response_url":%q}`,
				host+"/status", host+"/result")
		case "/status":
			w.Write([]byte(`{"status":"COMPLETED"}`))
		case "/result":
			w.Write([]byte(`{"images":[]}`))
		}
	})

	_, err := c.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no images")
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Options{OutputDir: "out"})
	require.Error(t, err)
	_, err = New(Options{APIKey: "k"})
	require.Error(t, err)
}
