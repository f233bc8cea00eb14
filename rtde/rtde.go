package rtde

import "sync/atomic"

// RTDE message types.
const (
	TypeRequestProtocolVersion byte = 1
	TypeGetControllerVersion   byte = 2
	TypeTextMessage            byte = 3
	TypeDataPackage            byte = 4
	TypeSetupOutputs           byte = 5
	TypeSetupInputs            byte = 6
	TypeStart                  byte = 7
	TypePause                  byte = 8
)

// headerSize is the size of the RTDE frame header: 2-byte big-endian length
// plus 1-byte message type. The length field counts the header itself.
const headerSize = 3

// Protocol versions the client understands, in preference order.
const (
	protocolVersion2 byte = 2
	protocolVersion1 byte = 1
)

// State represents the stage of the RTDE handshake.
type State uint32

// RTDE handshake states. The handshake advances strictly in declaration
// order; InputsConfigured is skipped when the controller rejects the input
// recipe.
const (
	StateIdle State = iota
	StateVersionRequested
	StateVersionAccepted
	StateOutputsConfigured
	StateInputsConfigured
	StateSynchronized
)

// String returns the string representation of the handshake state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateVersionRequested:
		return "version-requested"
	case StateVersionAccepted:
		return "version-accepted"
	case StateOutputsConfigured:
		return "outputs-configured"
	case StateInputsConfigured:
		return "inputs-configured"
	case StateSynchronized:
		return "synchronized"
	default:
		return "unknown"
	}
}

// AtomicState holds a State with atomic access, so the receive loop and
// control-path callers can inspect the handshake stage without locking.
type AtomicState struct {
	state atomic.Uint32
}

// Get returns the current state.
func (st *AtomicState) Get() State {
	return State(st.state.Load())
}

// Set sets the current state.
func (st *AtomicState) Set(state State) {
	st.state.Store(uint32(state))
}

// IsSynchronized reports whether the handshake has completed.
func (st *AtomicState) IsSynchronized() bool {
	return st.Get() == StateSynchronized
}

func (st *AtomicState) String() string {
	return st.Get().String()
}
