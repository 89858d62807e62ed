package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AlexZinkM/credlink/internal/model"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 15 * time.Second
	// maxResponseBody caps how much of the endpoint's reply is kept for display
	maxResponseBody = 64 * 1024
)

// StatusError is returned when the endpoint answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// IsStatusError checks if error is (or wraps) StatusError
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Options configures the credentials client
type Options struct {
	Timeout time.Duration
	// CAFile adds a PEM root certificate, e.g. a node's self-signed cert
	CAFile string
	// InsecureSkipVerify disables certificate verification entirely. Test deployments only.
	InsecureSkipVerify bool
	Logger             *zap.Logger
}

// CredentialsClient posts credential payloads to node endpoints
type CredentialsClient struct {
	client *http.Client
	logger *zap.Logger
}

// NewCredentialsClient creates a new credentials client.
// Certificate verification stays on unless opts.InsecureSkipVerify is set.
func NewCredentialsClient(opts Options) (*CredentialsClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if opts.CAFile != "" {
		pool, err := loadCertPool(opts.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}
	if opts.InsecureSkipVerify {
		logger.Warn("TLS certificate verification is disabled")
		tlsConfig.InsecureSkipVerify = true
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        1,
		IdleConnTimeout:     30 * time.Second,
	}

	return &CredentialsClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: logger,
	}, nil
}

func loadCertPool(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return pool, nil
}

// Submit posts payload as-is to endpoint with Content-Type application/json.
// A 2xx answer yields an OK result with the response body. A non-2xx answer
// yields a result together with a *StatusError; a transport failure yields
// only an error.
func (c *CredentialsClient) Submit(ctx context.Context, endpoint, payload string) (*model.SubmissionResult, error) {
	endpoint = strings.TrimSpace(endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post credentials: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	result := &model.SubmissionResult{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}

	c.logger.Debug("credentials posted",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode))

	if !result.OK {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(result.Body)}
		result.Message = statusErr.Error()
		return result, statusErr
	}
	return result, nil
}
