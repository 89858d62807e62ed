package scanflow

import (
	"errors"
	"fmt"
)

// Kind classifies user-visible notices
type Kind int

const (
	// KindValidation: scanned input does not have the expected shape. The flow stays put.
	KindValidation Kind = iota
	// KindDecoding: tag data is malformed. The flow stays in AwaitingCredentialScan.
	KindDecoding
	// KindTransport: the submission failed. The flow is over.
	KindTransport
	// KindUnavailable: camera, NFC reader or their permission is missing.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_rejection"
	case KindDecoding:
		return "decoding_error"
	case KindTransport:
		return "transport_failure"
	case KindUnavailable:
		return "collaborator_unavailable"
	default:
		return "unknown"
	}
}

// Notices shown to the user
const (
	NoticeInvalidEndpoint    = "not a valid link code"
	NoticeInvalidCredentials = "no valid election credentials found"
	NoticeTagReadError       = "error reading tag"
)

// NoticeError is an error to surface to the user as a transient notice
type NoticeError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *NoticeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *NoticeError) Unwrap() error {
	return e.Err
}

// NewUnavailableError reports that source (camera, NFC reader) cannot be used
func NewUnavailableError(source string, err error) error {
	return &NoticeError{Kind: KindUnavailable, Message: source + " unavailable", Err: err}
}

// KindOf returns the kind of a NoticeError anywhere in err's chain
func KindOf(err error) (Kind, bool) {
	var ne *NoticeError
	if errors.As(err, &ne) {
		return ne.Kind, true
	}
	return 0, false
}

// IsValidationRejection checks if error is a validation notice
func IsValidationRejection(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindValidation
}

// IsDecodingError checks if error is a tag decoding notice
func IsDecodingError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindDecoding
}

// IsTransportFailure checks if error is a submission failure
func IsTransportFailure(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindTransport
}

// IsUnavailable checks if error is a missing-collaborator notice
func IsUnavailable(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindUnavailable
}

var (
	// ErrDebounced is returned for a repeated scan inside the debounce window; callers ignore it
	ErrDebounced = errors.New("duplicate scan ignored")
	// ErrWrongState is returned when an event does not apply to the current state
	ErrWrongState = errors.New("event not valid in current state")
	// ErrSubmissionInFlight is returned when a submission is already running
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrFlowClosed is returned for events after the flow ended or was abandoned
	ErrFlowClosed = errors.New("flow is closed")
)
