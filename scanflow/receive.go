package scanflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AlexZinkM/credlink/internal/common"
	"github.com/AlexZinkM/credlink/internal/crypto"
	"github.com/AlexZinkM/credlink/internal/metrics"
	"github.com/AlexZinkM/credlink/internal/model"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials is returned for bodies that are not a credentials object
	ErrInvalidCredentials = errors.New("invalid credentials payload")
	// ErrVault is returned when received credentials cannot be sealed
	ErrVault = errors.New("failed to seal credentials")
)

// ReceiverOptions configures the node side of the hand-over
type ReceiverOptions struct {
	// VaultPath enables sealing received credentials; empty keeps them in memory only
	VaultPath string
	// Password returns a copy of the vault password; the copy is wiped after use
	Password func() ([]byte, error)
	// Seal writes the vault; defaults to crypto.SealCredentials
	Seal func(path string, creds *model.Credentials, password []byte) error
	// OnLoad is called with every accepted credential set
	OnLoad func(*model.Credentials)
	Clock  clock.Clock
	Logger *zap.Logger
}

// Receiver accepts credentials posted by a scanning device
type Receiver struct {
	opts   ReceiverOptions
	clock  clock.Clock
	logger *zap.Logger

	mu       sync.RWMutex
	loaded   bool
	elector  string
	loadedAt time.Time
	sealed   bool
}

// NewReceiver creates a Receiver
func NewReceiver(opts ReceiverOptions) (*Receiver, error) {
	if opts.VaultPath != "" && opts.Password == nil {
		return nil, errors.New("vault path set without a password source")
	}
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Seal == nil {
		opts.Seal = crypto.SealCredentials
	}
	return &Receiver{opts: opts, clock: c, logger: logger}, nil
}

// Accept validates a posted body with the same strict grammar the scanning
// side uses, then seals and records it.
func (r *Receiver) Accept(body []byte) (*model.Credentials, error) {
	text := strings.TrimSpace(string(body))
	if !common.IsValidCredentials(text) {
		metrics.ReceivedTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, ErrInvalidCredentials
	}

	var creds model.Credentials
	if err := json.Unmarshal([]byte(text), &creds); err != nil {
		metrics.ReceivedTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	sealed := false
	if r.opts.VaultPath != "" {
		if err := r.seal(&creds); err != nil {
			metrics.ReceivedTotal.WithLabelValues(metrics.ResultFailure).Inc()
			r.logger.Error("failed to seal credentials", zap.String("elector_id", creds.ElectorID), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrVault, err)
		}
		sealed = true
	}

	r.mu.Lock()
	r.loaded = true
	r.elector = creds.ElectorID
	r.loadedAt = r.clock.Now().UTC()
	r.sealed = sealed
	r.mu.Unlock()

	metrics.ReceivedTotal.WithLabelValues(metrics.ResultStored).Inc()
	r.logger.Info("credentials loaded", zap.String("elector_id", creds.ElectorID), zap.Bool("sealed", sealed))

	if r.opts.OnLoad != nil {
		r.opts.OnLoad(&creds)
	}
	return &creds, nil
}

func (r *Receiver) seal(creds *model.Credentials) error {
	password, err := r.opts.Password()
	if err != nil {
		return err
	}
	defer clear(password)

	return r.opts.Seal(r.opts.VaultPath, creds, password)
}

// Status reports what was loaded, without key material
func (r *Receiver) Status() model.CredentialsStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return model.CredentialsStatus{}
	}
	loadedAt := r.loadedAt
	return model.CredentialsStatus{
		Loaded:    true,
		ElectorID: r.elector,
		LoadedAt:  &loadedAt,
		Sealed:    r.sealed,
	}
}
