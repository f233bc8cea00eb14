package urclient

import (
	"sync"
	"time"
)

// RobotMode is the controller's top-level operational mode.
type RobotMode int

// Robot modes as reported by the controller.
const (
	RobotModeNoController  RobotMode = -1
	RobotModeDisconnected  RobotMode = 0
	RobotModeConfirmSafety RobotMode = 1
	RobotModeBooting       RobotMode = 2
	RobotModePowerOff      RobotMode = 3
	RobotModePowerOn       RobotMode = 4
	RobotModeIdle          RobotMode = 5
	RobotModeBackdrive     RobotMode = 6
	RobotModeRunning       RobotMode = 7
)

func (m RobotMode) String() string {
	switch m {
	case RobotModeNoController:
		return "NO_CONTROLLER"
	case RobotModeDisconnected:
		return "DISCONNECTED"
	case RobotModeConfirmSafety:
		return "CONFIRM_SAFETY"
	case RobotModeBooting:
		return "BOOTING"
	case RobotModePowerOff:
		return "POWER_OFF"
	case RobotModePowerOn:
		return "POWER_ON"
	case RobotModeIdle:
		return "IDLE"
	case RobotModeBackdrive:
		return "BACKDRIVE"
	case RobotModeRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// SafetyMode is the controller's safety subsystem mode.
type SafetyMode int

// Safety modes as reported by the controller.
const (
	SafetyModeUndefined           SafetyMode = 0
	SafetyModeNormal              SafetyMode = 1
	SafetyModeReduced             SafetyMode = 2
	SafetyModeProtectiveStop      SafetyMode = 3
	SafetyModeRecovery            SafetyMode = 4
	SafetyModeSafeguardStop       SafetyMode = 5
	SafetyModeSystemEmergencyStop SafetyMode = 6
	SafetyModeRobotEmergencyStop  SafetyMode = 7
	SafetyModeViolation           SafetyMode = 8
	SafetyModeFault               SafetyMode = 9
)

func (m SafetyMode) String() string {
	switch m {
	case SafetyModeNormal:
		return "NORMAL"
	case SafetyModeReduced:
		return "REDUCED"
	case SafetyModeProtectiveStop:
		return "PROTECTIVE_STOP"
	case SafetyModeRecovery:
		return "RECOVERY"
	case SafetyModeSafeguardStop:
		return "SAFEGUARD_STOP"
	case SafetyModeSystemEmergencyStop:
		return "SYSTEM_EMERGENCY_STOP"
	case SafetyModeRobotEmergencyStop:
		return "ROBOT_EMERGENCY_STOP"
	case SafetyModeViolation:
		return "VIOLATION"
	case SafetyModeFault:
		return "FAULT"
	default:
		return "UNDEFINED"
	}
}

// ProgramState is the coarse execution state of the loaded program.
type ProgramState uint32

const (
	// ProgramStopped means no program is executing.
	ProgramStopped ProgramState = iota
	// ProgramPlaying means a program is executing.
	ProgramPlaying
	// ProgramPaused means a program is loaded and suspended.
	ProgramPaused
)

func (s ProgramState) String() string {
	switch s {
	case ProgramPlaying:
		return "PLAYING"
	case ProgramPaused:
		return "PAUSED"
	default:
		return "STOPPED"
	}
}

// Snapshot is the latest known robot telemetry plus derived status fields.
// Joints are in radians; TCPPose is meters for the position components and
// radians for the rotation components. Snapshot values are plain copies:
// mutating one never affects the client's shared state.
type Snapshot struct {
	Joints        [6]float64
	TCPPose       [6]float64
	SpeedFraction float64
	RobotMode     RobotMode
	SafetyMode    SafetyMode
	ProgramState  ProgramState
	LoadedProgram string
	Timestamp     time.Time
}

// stateStore holds the one shared mutable snapshot. Writers mutate it under
// an exclusive lock; readers always take a copy. It also carries the
// program-state lock: a short window after each successful program command
// during which advisory writers (the status poller and the RTDE listener)
// must not overwrite ProgramState with a potentially stale reading.
type stateStore struct {
	mu        sync.RWMutex
	snap      Snapshot
	lockUntil time.Time
}

func newStateStore() *stateStore {
	return &stateStore{}
}

// Snapshot returns a copy of the current snapshot.
func (s *stateStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap
}

// Update applies fn to the snapshot under the exclusive write lock. fn must
// not block.
func (s *stateStore) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.snap)
}

// SetProgramState records an authoritative program-state transition and arms
// the lock for the given window, so the next advisory sample cannot clobber
// the just-applied state with stale data.
func (s *stateStore) SetProgramState(state ProgramState, lockWindow time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.ProgramState = state
	s.lockUntil = time.Now().Add(lockWindow)
}

// SetProgramStateAdvisory records a program state observed by a background
// sampler. The write is dropped while the lock window is active; the lock
// expires by time alone.
func (s *stateStore) SetProgramStateAdvisory(state ProgramState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Now().Before(s.lockUntil) {
		return
	}

	s.snap.ProgramState = state
}

// ProgramStateLocked reports whether the advisory-write lock window is
// still active.
func (s *stateStore) ProgramStateLocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return time.Now().Before(s.lockUntil)
}

// Reset replaces the snapshot with the zero value and clears the lock. Used
// on disconnect: no entity outlives one connection session.
func (s *stateStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = Snapshot{}
	s.lockUntil = time.Time{}
}
