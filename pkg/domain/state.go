package domain

// SessionState is the single enumerated value owned by the session controller.
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateConnecting    SessionState = "connecting"
	StateConnected     SessionState = "connected"
	StateDisconnecting SessionState = "disconnecting"
	StateError         SessionState = "error"
)

// Active reports whether a session handle may exist in this state.
func (s SessionState) Active() bool {
	return s == StateConnecting || s == StateConnected || s == StateDisconnecting
}

// CanConnect reports whether a new connect attempt may start from this state.
// The error state is idle-equivalent: the failed attempt already released everything.
func (s SessionState) CanConnect() bool {
	return s == StateIdle || s == StateError
}
