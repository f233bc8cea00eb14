package urclient

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arloliu/go-ur/dashboard"
	"github.com/arloliu/go-ur/logger"
)

func TestPollStatus_FillsModesFromDashboard(t *testing.T) {
	c := newTestClient(t)
	attachDashboard(t, c,
		"Robotmode: RUNNING",
		"Safetystatus: NORMAL",
		"PLAYING /programs/wave.urp",
		"Loaded program: /programs/wave.urp",
	)

	assert.True(t, c.pollStatus(c.dashConn))

	snap := c.state.Snapshot()
	assert.Equal(t, RobotModeRunning, snap.RobotMode)
	assert.Equal(t, SafetyModeNormal, snap.SafetyMode)
	assert.Equal(t, ProgramPlaying, snap.ProgramState)
	assert.Equal(t, "/programs/wave.urp", snap.LoadedProgram)
}

func TestPollStatus_SkipsModesWhileRTDEUp(t *testing.T) {
	c := newTestClient(t)
	// Only the loaded-program query is answered; the mode queries must not
	// be issued at all while the telemetry channel carries them.
	attachDashboard(t, c, "Loaded program: wave.urp")
	c.rtdeUp.Store(true)

	assert.True(t, c.pollStatus(c.dashConn))
	assert.Equal(t, "wave.urp", c.state.Snapshot().LoadedProgram)
	assert.Equal(t, RobotModeDisconnected, c.state.Snapshot().RobotMode)
}

func TestPollStatus_TransportErrorMarksChannelDown(t *testing.T) {
	c := newTestClient(t)

	local, remote := net.Pipe()
	_ = remote.Close()
	_ = local.Close()

	c.mu.Lock()
	c.dashConn = dashboard.NewConn(local, logger.NewNoop())
	c.mu.Unlock()
	c.dashUp.Store(true)

	// The loop survives the dead socket, but the channel must report
	// disconnected like any other mid-session transport failure.
	assert.True(t, c.pollStatus(c.dashConn))
	assert.False(t, c.dashUp.Load())
	assert.False(t, c.Status().DashboardConnected)
}

func TestPollStatus_UnusableRepliesKeepChannelUp(t *testing.T) {
	c := newTestClient(t)

	// Every robotmode attempt yields a repeated banner, which exhausts the
	// query without touching transport health; the remaining queries still
	// run and land.
	banner := "Connected: Universal Robots Dashboard Server"
	attachDashboard(t, c,
		banner, banner, banner,
		"Safetystatus: NORMAL",
		"PLAYING /programs/wave.urp",
		"Loaded program: wave.urp",
	)

	assert.True(t, c.pollStatus(c.dashConn))
	assert.True(t, c.dashUp.Load())
	assert.Equal(t, SafetyModeNormal, c.state.Snapshot().SafetyMode)
	assert.Equal(t, "wave.urp", c.state.Snapshot().LoadedProgram)
}

func TestPollStatus_NoDashboard(t *testing.T) {
	c := newTestClient(t)
	assert.True(t, c.pollStatus(nil))
}

func TestPollLoadedProgram_NoProgram(t *testing.T) {
	c := newTestClient(t)
	attachDashboard(t, c, "No program loaded")

	c.pollLoadedProgram(c.dashConn)
	assert.Empty(t, c.state.Snapshot().LoadedProgram)
}

func TestTaggedValue(t *testing.T) {
	assert.Equal(t, "RUNNING", taggedValue("Robotmode: RUNNING"))
	assert.Equal(t, "wave.urp", taggedValue("Loaded program: wave.urp"))
	assert.Equal(t, "PLAYING", taggedValue("  PLAYING  "))
}

func TestRobotModeFromString(t *testing.T) {
	mode, ok := robotModeFromString("running")
	assert.True(t, ok)
	assert.Equal(t, RobotModeRunning, mode)

	mode, ok = robotModeFromString("POWER_OFF")
	assert.True(t, ok)
	assert.Equal(t, RobotModePowerOff, mode)

	_, ok = robotModeFromString("whatever")
	assert.False(t, ok)
}

func TestSafetyModeFromString(t *testing.T) {
	mode, ok := safetyModeFromString("PROTECTIVE_STOP")
	assert.True(t, ok)
	assert.Equal(t, SafetyModeProtectiveStop, mode)

	_, ok = safetyModeFromString("")
	assert.False(t, ok)
}

func TestProgramStateFromString(t *testing.T) {
	state, ok := programStateFromString("PLAYING /programs/wave.urp")
	assert.True(t, ok)
	assert.Equal(t, ProgramPlaying, state)

	state, ok = programStateFromString("stopped")
	assert.True(t, ok)
	assert.Equal(t, ProgramStopped, state)

	_, ok = programStateFromString("")
	assert.False(t, ok)
}
