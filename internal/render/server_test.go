package render

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Stylesheet(t *testing.T) {
	s := NewServer(nil)
	require.NoError(t, s.InsertCSS(context.Background(), "a{color:red !important}"))
	require.NoError(t, s.InsertCSS(context.Background(), "b{}"))

	req := httptest.NewRequest(http.MethodGet, "/themes.css", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "0", rec.Header().Get("X-Theme-Generation"))
	assert.Equal(t, "a{color:red !important}\n\nb{}", rec.Body.String())
}

func TestServer_ReloadEndpoint(t *testing.T) {
	s := NewServer(nil)
	s.OnReload(func(ctx context.Context) error {
		return s.InsertCSS(ctx, "reloaded{}")
	})
	require.NoError(t, s.InsertCSS(context.Background(), "old{}"))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"reloaded{}"}, s.Sheets())
	assert.Equal(t, uint64(1), s.Generation())
}

func TestServer_ReloadMethodNotAllowed(t *testing.T) {
	s := NewServer(nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reload", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_EventsStreamReloads(t *testing.T) {
	s := NewServer(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ":connected\n", line)

	// The subscriber is registered before the first flush.
	require.NoError(t, s.Reload(context.Background()))

	var event strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if line == "\n" {
			if event.Len() > 0 {
				break
			}
			continue
		}
		event.WriteString(line)
	}
	assert.Equal(t, "event: reload\nid: 1\ndata: 1\n", event.String())
}

func TestServer_ListenAndServeStops(t *testing.T) {
	s := NewServer(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
