package urclient

import (
	"errors"
	"strings"

	"github.com/arloliu/go-ur/dashboard"
)

// pollStatus is one status poller iteration. While RTDE is down it fills in
// the mode fields from dashboard queries; the loaded program is refreshed on
// every iteration because no other channel exposes it. A transport error
// marks the dashboard channel disconnected like any other mid-session
// failure, but the loop itself keeps running; only teardown stops it.
func (c *Client) pollStatus(dash *dashboard.Conn) bool {
	if dash == nil || !c.dashUp.Load() {
		return true
	}

	if !c.rtdeUp.Load() {
		c.pollModes(dash)
	}

	c.pollLoadedProgram(dash)

	return true
}

func (c *Client) pollModes(dash *dashboard.Conn) {
	if reply, err := dash.Query("robotmode"); err != nil {
		if !c.noteQueryError("robotmode", err) {
			return
		}
	} else if mode, ok := robotModeFromString(taggedValue(reply)); ok {
		c.state.Update(func(snap *Snapshot) { snap.RobotMode = mode })
	}

	if reply, err := dash.Query("safetystatus"); err != nil {
		if !c.noteQueryError("safetystatus", err) {
			return
		}
	} else if mode, ok := safetyModeFromString(taggedValue(reply)); ok {
		c.state.Update(func(snap *Snapshot) { snap.SafetyMode = mode })
	}

	if reply, err := dash.Query("programState"); err != nil {
		c.noteQueryError("programState", err)
	} else if state, ok := programStateFromString(reply); ok {
		// Advisory: a fresh program command holds the state lock and this
		// sample may be stale.
		c.state.SetProgramStateAdvisory(state)
	}
}

// noteQueryError records a failed dashboard query. A run of unusable
// replies leaves the transport healthy, but a read or write error means the
// socket is gone: the channel is marked disconnected and the iteration must
// stop querying it. The poll loop itself keeps running either way.
func (c *Client) noteQueryError(command string, err error) (channelUp bool) {
	if errors.Is(err, dashboard.ErrNoReply) {
		c.logger.Warn("dashboard query failed", "command", command, "error", err)
		return true
	}

	c.dashUp.Store(false)
	c.logger.Error("dashboard channel lost during poll", "command", command, "error", err)

	return false
}

func (c *Client) pollLoadedProgram(dash *dashboard.Conn) {
	if !c.dashUp.Load() {
		return
	}

	reply, err := dash.Query("get loaded program")
	if err != nil {
		c.noteQueryError("get loaded program", err)
		return
	}

	name := taggedValue(reply)
	if name == "" || strings.Contains(strings.ToLower(reply), "no program loaded") {
		return
	}

	c.state.Update(func(snap *Snapshot) { snap.LoadedProgram = name })
}

// taggedValue extracts the value of a "Tag: value" dashboard reply. Replies
// without a colon are returned trimmed as-is.
func taggedValue(reply string) string {
	if _, value, found := strings.Cut(reply, ":"); found {
		return strings.TrimSpace(value)
	}

	return strings.TrimSpace(reply)
}

func robotModeFromString(word string) (RobotMode, bool) {
	switch strings.ToUpper(word) {
	case "NO_CONTROLLER":
		return RobotModeNoController, true
	case "DISCONNECTED":
		return RobotModeDisconnected, true
	case "CONFIRM_SAFETY":
		return RobotModeConfirmSafety, true
	case "BOOTING":
		return RobotModeBooting, true
	case "POWER_OFF":
		return RobotModePowerOff, true
	case "POWER_ON":
		return RobotModePowerOn, true
	case "IDLE":
		return RobotModeIdle, true
	case "BACKDRIVE":
		return RobotModeBackdrive, true
	case "RUNNING":
		return RobotModeRunning, true
	default:
		return RobotModeDisconnected, false
	}
}

func safetyModeFromString(word string) (SafetyMode, bool) {
	switch strings.ToUpper(word) {
	case "NORMAL":
		return SafetyModeNormal, true
	case "REDUCED":
		return SafetyModeReduced, true
	case "PROTECTIVE_STOP":
		return SafetyModeProtectiveStop, true
	case "RECOVERY":
		return SafetyModeRecovery, true
	case "SAFEGUARD_STOP":
		return SafetyModeSafeguardStop, true
	case "SYSTEM_EMERGENCY_STOP":
		return SafetyModeSystemEmergencyStop, true
	case "ROBOT_EMERGENCY_STOP":
		return SafetyModeRobotEmergencyStop, true
	case "VIOLATION":
		return SafetyModeViolation, true
	case "FAULT":
		return SafetyModeFault, true
	default:
		return SafetyModeUndefined, false
	}
}

// programStateFromString parses a "programState" reply, which reads
// "<STATE> [<program path>]".
func programStateFromString(reply string) (ProgramState, bool) {
	word, _, _ := strings.Cut(strings.TrimSpace(reply), " ")
	switch strings.ToUpper(word) {
	case "PLAYING":
		return ProgramPlaying, true
	case "PAUSED":
		return ProgramPaused, true
	case "STOPPED":
		return ProgramStopped, true
	default:
		return ProgramStopped, false
	}
}
