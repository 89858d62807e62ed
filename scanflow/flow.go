// Package scanflow sequences one credential hand-over: scan the node's
// endpoint QR, confirm its link code, read the credentials tag and post
// the tag text to the endpoint.
package scanflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/AlexZinkM/credlink/internal/common"
	"github.com/AlexZinkM/credlink/internal/metrics"
	"github.com/AlexZinkM/credlink/internal/model"
	"github.com/AlexZinkM/credlink/internal/ndef"
	"github.com/AlexZinkM/credlink/internal/scanner"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submitter posts a credentials payload to an endpoint
type Submitter interface {
	Submit(ctx context.Context, endpoint, payload string) (*model.SubmissionResult, error)
}

// Options configures a Flow
type Options struct {
	Submitter Submitter
	// Clock drives the scan debounce; defaults to the real clock
	Clock clock.Clock
	// Debouncer overrides the per-flow debouncer
	Debouncer *scanner.Debouncer
	Logger    *zap.Logger
}

// Flow is one scan-confirm-submit sequence. Events are serialized; at
// most one submission is in flight. A finished or abandoned flow accepts
// no more events, so a new Flow must be started to scan again.
type Flow struct {
	mu sync.Mutex

	id        string
	state     State
	clock     clock.Clock
	debouncer *scanner.Debouncer
	submitter Submitter
	logger    *zap.Logger
	done      chan struct{}

	endpoint    string
	code        string
	credentials string
	inFlight    bool
	result      *model.SubmissionResult
}

// New starts a flow in AwaitingEndpointScan
func New(opts Options) *Flow {
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	d := opts.Debouncer
	if d == nil {
		d = scanner.NewDebouncer(c, scanner.DebounceWindow)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.NewString()
	f := &Flow{
		id:        id,
		state:     AwaitingEndpointScan,
		clock:     c,
		debouncer: d,
		submitter: opts.Submitter,
		logger:    logger.With(zap.String("flow_id", id)),
		done:      make(chan struct{}),
	}
	f.logger.Debug("flow started")
	return f
}

// ID returns the flow's correlation id
func (f *Flow) ID() string {
	return f.id
}

// State returns the current state
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Endpoint returns the accepted endpoint, if any
func (f *Flow) Endpoint() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoint
}

// Code returns the link code of the accepted endpoint, if any
func (f *Flow) Code() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

// Result returns the submission outcome once the flow is terminal
func (f *Flow) Result() *model.SubmissionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Done is closed when the flow reaches a terminal state or is abandoned.
// Scan sources should release the camera or tag reader then.
func (f *Flow) Done() <-chan struct{} {
	return f.done
}

// HandleScan consumes a decoded QR value. A repeat of the last accepted
// value within the debounce window returns ErrDebounced.
func (f *Flow) HandleScan(raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expect(AwaitingEndpointScan); err != nil {
		return err
	}
	if !f.debouncer.Accept(raw) {
		metrics.ScansTotal.WithLabelValues(metrics.ResultDebounced).Inc()
		return ErrDebounced
	}

	endpoint := strings.TrimSpace(raw)
	if !common.IsValidEndpoint(endpoint) {
		metrics.ScansTotal.WithLabelValues(metrics.ResultRejected).Inc()
		f.logger.Info("endpoint scan rejected", zap.Int("length", len(raw)))
		return &NoticeError{Kind: KindValidation, Message: NoticeInvalidEndpoint}
	}

	code, err := common.Fingerprint(endpoint)
	if err != nil {
		return fmt.Errorf("failed to fingerprint endpoint: %w", err)
	}

	metrics.ScansTotal.WithLabelValues(metrics.ResultAccepted).Inc()
	f.endpoint = endpoint
	f.code = code
	f.transition(AwaitingConfirmation, zap.String("endpoint", endpoint), zap.String("code", code))
	return nil
}

// Confirm records that the user matched the link code
func (f *Flow) Confirm() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expect(AwaitingConfirmation); err != nil {
		return err
	}
	f.transition(AwaitingCredentialScan)
	return nil
}

// Reject discards the endpoint and goes back to scanning
func (f *Flow) Reject() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expect(AwaitingConfirmation); err != nil {
		return err
	}
	f.endpoint = ""
	f.code = ""
	f.transition(AwaitingEndpointScan)
	return nil
}

// HandleTag consumes the payload of a Text record read from a tag
func (f *Flow) HandleTag(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expect(AwaitingCredentialScan); err != nil {
		return err
	}

	text, err := ndef.DecodeText(payload)
	if err != nil {
		metrics.TagReadsTotal.WithLabelValues(metrics.ResultDecodeError).Inc()
		f.logger.Info("tag decode failed", zap.Error(err))
		return &NoticeError{Kind: KindDecoding, Message: NoticeTagReadError, Err: err}
	}

	if !common.IsValidCredentials(text) {
		metrics.TagReadsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		f.logger.Info("tag rejected")
		return &NoticeError{Kind: KindValidation, Message: NoticeInvalidCredentials}
	}

	metrics.TagReadsTotal.WithLabelValues(metrics.ResultAccepted).Inc()
	f.credentials = strings.TrimSpace(text)
	f.transition(AwaitingSubmission)
	return nil
}

// Submit posts the credentials to the endpoint once. Any failure ends the
// flow in Failed with a KindTransport notice; there is no retry.
func (f *Flow) Submit(ctx context.Context) (*model.SubmissionResult, error) {
	f.mu.Lock()
	if err := f.expect(AwaitingSubmission); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if f.submitter == nil {
		f.mu.Unlock()
		return nil, errors.New("no submitter configured")
	}
	f.inFlight = true
	endpoint, payload := f.endpoint, f.credentials
	f.mu.Unlock()

	start := f.clock.Now()
	result, err := f.submitter.Submit(ctx, endpoint, payload)
	metrics.SubmissionDuration.Observe(f.clock.Since(start).Seconds())

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false

	if err == nil && (result == nil || !result.OK) {
		err = errors.New("endpoint did not accept the credentials")
	}
	if err != nil {
		if result == nil {
			result = &model.SubmissionResult{}
		}
		result.OK = false
		if result.Message == "" {
			result.Message = err.Error()
		}
	}
	f.result = result

	// Abandoned while the request was running: report, but stay abandoned.
	if f.state == AwaitingSubmission {
		if err != nil {
			f.transition(Failed, zap.Error(err))
		} else {
			f.transition(Succeeded, zap.Int("status", result.StatusCode))
		}
	}

	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return result, &NoticeError{Kind: KindTransport, Message: "submission failed", Err: err}
	}
	metrics.SubmissionsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return result, nil
}

// Abandon stops the flow. Later events return ErrFlowClosed.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Terminal() {
		return
	}
	f.transition(Abandoned)
}

func (f *Flow) expect(want State) error {
	if f.state.Terminal() {
		return ErrFlowClosed
	}
	if f.state != want {
		return fmt.Errorf("%w: %s", ErrWrongState, f.state)
	}
	return nil
}

// transition must be called with f.mu held
func (f *Flow) transition(next State, fields ...zap.Field) {
	prev := f.state
	f.state = next

	fields = append(fields, zap.Stringer("from", prev), zap.Stringer("to", next))
	f.logger.Info("flow transition", fields...)

	if next.Terminal() {
		f.credentials = ""
		close(f.done)
	}
}
