package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AlexZinkM/credlink/internal/model"
	"github.com/AlexZinkM/credlink/internal/ndef"
	"github.com/AlexZinkM/credlink/scanflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTag encodes testCreds into an NDEF hex dump and returns its path
func writeTag(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "creds.json")
	out := filepath.Join(dir, "tag.hex")
	require.NoError(t, writeFile(in, testCreds))
	require.NoError(t, run([]string{"tag", "encode", "--hex", "--from-file", in, "--out", out}))
	return out
}

type capturedPost struct {
	mu          sync.Mutex
	path        string
	contentType string
	body        string
}

func credentialsServer(t *testing.T, status int, captured *capturedPost) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		captured.mu.Lock()
		captured.path = r.URL.Path
		captured.contentType = r.Header.Get("Content-Type")
		captured.body = string(body)
		captured.mu.Unlock()

		w.WriteHeader(status)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScanSubmitsTag(t *testing.T) {
	captured := &capturedPost{}
	srv := credentialsServer(t, http.StatusOK, captured)
	tag := writeTag(t)

	err := run([]string{"scan", "--endpoint", srv.URL + "/credentials", "--tag", tag, "--yes"})
	require.NoError(t, err)

	captured.mu.Lock()
	defer captured.mu.Unlock()
	assert.Equal(t, "/credentials", captured.path)
	assert.Equal(t, "application/json", captured.contentType)
	assert.Equal(t, testCreds, captured.body)
}

func TestScanServerError(t *testing.T) {
	srv := credentialsServer(t, http.StatusInternalServerError, &capturedPost{})
	tag := writeTag(t)

	err := run([]string{"scan", "--endpoint", srv.URL + "/credentials", "--tag", tag, "--yes"})
	require.Error(t, err)
	assert.True(t, scanflow.IsTransportFailure(err))
}

func TestScanUnavailableSources(t *testing.T) {
	srv := credentialsServer(t, http.StatusOK, &capturedPost{})
	tag := writeTag(t)
	missing := filepath.Join(t.TempDir(), "missing")

	err := run([]string{"scan", "--qr-image", missing + ".png", "--tag", tag, "--yes"})
	require.Error(t, err)
	assert.True(t, scanflow.IsUnavailable(err))

	err = run([]string{"scan", "--endpoint", srv.URL + "/credentials", "--tag", missing + ".hex", "--yes"})
	require.Error(t, err)
	assert.True(t, scanflow.IsUnavailable(err))
}

func TestScanRejectsBadInput(t *testing.T) {
	srv := credentialsServer(t, http.StatusOK, &capturedPost{})
	tag := writeTag(t)

	err := run([]string{"scan", "--endpoint", "http://node.local:5000/credentials", "--tag", tag, "--yes"})
	assert.True(t, scanflow.IsValidationRejection(err))

	garbage := filepath.Join(t.TempDir(), "garbage.bin")
	require.NoError(t, writeFile(garbage, "\xd1\x01"))
	err = run([]string{"scan", "--endpoint", srv.URL + "/credentials", "--tag", garbage, "--yes"})
	assert.True(t, scanflow.IsDecodingError(err))

	// Without --yes the link code must be confirmed on a terminal.
	err = run([]string{"scan", "--endpoint", srv.URL + "/credentials", "--tag", tag})
	assert.ErrorContains(t, err, "not a terminal")

	assert.Error(t, run([]string{"scan", "--tag", tag}))
	assert.Error(t, run([]string{"scan", "--endpoint", srv.URL + "/credentials"}))
}

func TestTagSourceError(t *testing.T) {
	denied := &fs.PathError{Op: "open", Path: "/dev/nfc0", Err: fs.ErrPermission}
	assert.True(t, scanflow.IsUnavailable(tagSourceError(denied)))

	notFound := &fs.PathError{Op: "open", Path: "tag.hex", Err: fs.ErrNotExist}
	assert.True(t, scanflow.IsUnavailable(tagSourceError(notFound)))

	err := tagSourceError(&ndef.DecodingError{Message: "truncated record"})
	assert.True(t, scanflow.IsDecodingError(err))
	assert.False(t, scanflow.IsUnavailable(tagSourceError(errors.New("short read"))))
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestServeReceivesScan(t *testing.T) {
	port := freePort(t)
	t.Setenv("PORT", strconv.Itoa(port))
	t.Setenv("PORT_ATTEMPTS", "1")
	t.Setenv("ADVERTISE_IP", "127.0.0.1")
	t.Setenv("VAULT_PATH", "")
	t.Setenv("TLS_CERT_FILE", "")
	t.Setenv("TLS_KEY_FILE", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, "") }()

	base := "http://127.0.0.1:" + strconv.Itoa(port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/linkcode")
	require.NoError(t, err)
	var lc model.LinkCode
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lc))
	resp.Body.Close()
	assert.Equal(t, base+"/credentials", lc.Endpoint)

	require.NoError(t, run([]string{"scan", "--endpoint", lc.Endpoint, "--tag", writeTag(t), "--yes"}))

	resp, err = http.Get(base + "/credentials")
	require.NoError(t, err)
	var status model.CredentialsStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.True(t, status.Loaded)
	assert.Equal(t, "E-9", status.ElectorID)

	resp, err = http.Post(base+"/credentials", "application/json", strings.NewReader(`{"elector_id":"E"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
