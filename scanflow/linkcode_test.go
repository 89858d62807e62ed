package scanflow

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/AlexZinkM/credlink/internal/common"
	"github.com/AlexZinkM/credlink/internal/scanner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointURL(t *testing.T) {
	endpoint, err := EndpointURL("https", "192.168.1.1", 8080)
	require.NoError(t, err)
	assert.Equal(t, testEndpoint, endpoint)

	endpoint, err = EndpointURL("http", "10.0.0.5", 3000)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:3000/credentials", endpoint)
	assert.True(t, common.IsValidEndpoint(endpoint))
}

func TestEndpointURLErrors(t *testing.T) {
	cases := []struct {
		name   string
		scheme string
		ip     string
		port   int
	}{
		{"ftp scheme", "ftp", "10.0.0.1", 21},
		{"host name", "http", "node.local", 5000},
		{"ipv6", "http", "::1", 5000},
		{"zero port", "http", "10.0.0.1", 0},
		{"port too large", "http", "10.0.0.1", 70000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EndpointURL(tc.scheme, tc.ip, tc.port)
			assert.Error(t, err)
		})
	}
}

func TestGenerateLinkCode(t *testing.T) {
	lc, err := GenerateLinkCode(testEndpoint)
	require.NoError(t, err)
	assert.Equal(t, testEndpoint, lc.Endpoint)
	assert.Equal(t, "3477", lc.Code)

	png, err := base64.StdEncoding.DecodeString(lc.QR)
	require.NoError(t, err)

	// What the node shows is what the scanning side reads back.
	decoded, err := scanner.DecodeImage(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, testEndpoint, decoded)

	f, _ := newTestFlow(t, okSubmitter())
	require.NoError(t, f.HandleScan(decoded))
	assert.Equal(t, lc.Code, f.Code())
}

func TestGenerateLinkCodeInvalidUTF8(t *testing.T) {
	_, err := GenerateLinkCode("http://\xff")
	require.Error(t, err)
	assert.True(t, common.IsEncodingError(err))
}

func TestWriteLinkCodePNG(t *testing.T) {
	dir := t.TempDir()

	err := WriteLinkCodePNG(testEndpoint, filepath.Join(dir, "code.jpg"))
	assert.Error(t, err)

	path := filepath.Join(dir, "code.png")
	require.NoError(t, WriteLinkCodePNG(testEndpoint, path))

	decoded, err := scanner.DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, testEndpoint, decoded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
