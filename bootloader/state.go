package bootloader

// State is a step of the programming session.
type State int

const (
	// StateIdle is the state before Program is called
	StateIdle State = iota

	// StateResetting pulses the reset line and flushes the link
	StateResetting

	// StateAwaitingHandshake probes the bootloader until it answers
	StateAwaitingHandshake

	// StateStreaming sends packets and waits for each acknowledgement
	StateStreaming

	// StateTerminating sends the termination sequence
	StateTerminating

	// StateDone is reached when every packet was acknowledged
	StateDone

	// StateFailed is reached on a fatal error or when retries are exhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResetting:
		return "resetting"
	case StateAwaitingHandshake:
		return "awaiting-handshake"
	case StateStreaming:
		return "streaming"
	case StateTerminating:
		return "terminating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
