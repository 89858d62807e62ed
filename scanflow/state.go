package scanflow

// State is a step of the scan-confirm-submit sequence
type State int

const (
	AwaitingEndpointScan State = iota
	AwaitingConfirmation
	AwaitingCredentialScan
	AwaitingSubmission
	Succeeded
	Failed
	Abandoned
)

var stateNames = map[State]string{
	AwaitingEndpointScan:   "awaiting_endpoint_scan",
	AwaitingConfirmation:   "awaiting_confirmation",
	AwaitingCredentialScan: "awaiting_credential_scan",
	AwaitingSubmission:     "awaiting_submission",
	Succeeded:              "succeeded",
	Failed:                 "failed",
	Abandoned:              "abandoned",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Abandoned
}
