package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// Listen binds the first free TCP port in [port, port+attempts) and
// returns the bound port. Only "address in use" moves on to the next port.
func Listen(host string, port, attempts int) (net.Listener, int, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for p := port; p < port+attempts && p <= 65535; p++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err == nil {
			return ln, ln.Addr().(*net.TCPAddr).Port, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, 0, fmt.Errorf("failed to listen on port %d: %w", p, err)
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d: %w", port, port+attempts-1, lastErr)
}

// Server serves the receiver API on a bound listener
type Server struct {
	srv      *http.Server
	ln       net.Listener
	certFile string
	keyFile  string
	logger   *zap.Logger
}

// NewServer creates a Server. TLS is used when both certFile and keyFile are set.
func NewServer(handler http.Handler, ln net.Listener, certFile, keyFile string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
			ErrorLog:     zap.NewStdLog(logger),
		},
		ln:       ln,
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.certFile != "" && s.keyFile != "" {
			err = s.srv.ServeTLS(s.ln, s.certFile, s.keyFile)
		} else {
			err = s.srv.Serve(s.ln)
		}
		errCh <- err
	}()

	s.logger.Info("receiver listening", zap.String("addr", s.ln.Addr().String()), zap.Bool("tls", s.certFile != ""))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}
