package proxy

// State is a step of the per-connection request loop.
type State uint8

const (
	StateWaitRequest State = iota
	StateParse
	StateResolve
	StateRewrite
	StateConnectUpstream
	StateSendUpstream
	StateRelayResponse
	StateClose
)

var stateNames = [...]string{
	StateWaitRequest:     "wait_request",
	StateParse:           "parse",
	StateResolve:         "resolve",
	StateRewrite:         "rewrite",
	StateConnectUpstream: "connect_upstream",
	StateSendUpstream:    "send_upstream",
	StateRelayResponse:   "relay_response",
	StateClose:           "close",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return "unknown"
}

// next returns the state following s on the success path. RelayResponse
// loops back to WaitRequest and Close is terminal.
func (s State) next() State {
	switch s {
	case StateRelayResponse:
		return StateWaitRequest
	case StateClose:
		return StateClose
	default:
		return s + 1
	}
}
