package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AlexZinkM/credlink/internal/handler"
	"github.com/AlexZinkM/credlink/scanflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testCreds = `{"elector_id":"E-1","public_key":"PK","private_key":"SK"}`

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	receiver, err := scanflow.NewReceiver(scanflow.ReceiverOptions{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	h, err := handler.NewCredentialsHandler(receiver, "http://127.0.0.1:5000/credentials", zaptest.NewLogger(t))
	require.NoError(t, err)
	return SetupRouter(h)
}

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/credentials", "application/json", strings.NewReader(testCreds))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, path := range []string{"/credentials", "/linkcode", "/health", "/metrics", "/swagger/doc.json"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/credentials", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouterRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{handler="health",method="GET",status="200"}`)
}

func TestListenSkipsBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	ln, got, err := Listen("127.0.0.1", port, 5)
	require.NoError(t, err)
	defer ln.Close()
	assert.Greater(t, got, port)
	assert.Less(t, got, port+5)
}

func TestListenNoFreePort(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	_, _, err = Listen("127.0.0.1", port, 1)
	assert.Error(t, err)
}

func TestServerRunShutdown(t *testing.T) {
	ln, port, err := Listen("127.0.0.1", 0, 1)
	require.NoError(t, err)
	assert.NotZero(t, port)

	s := NewServer(newTestRouter(t), ln, "", "", zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
