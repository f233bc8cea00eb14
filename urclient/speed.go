package urclient

import (
	"fmt"

	"github.com/arloliu/go-ur/dashboard"
	"github.com/arloliu/go-ur/urscript"
)

// SpeedPath identifies which interface carried a speed change.
type SpeedPath int

const (
	// SpeedPathNone means no interface accepted the write.
	SpeedPathNone SpeedPath = iota
	// SpeedPathRTDE means the fraction went through the RTDE input recipe.
	SpeedPathRTDE
	// SpeedPathDashboard means the dashboard "set speed" command was used.
	SpeedPathDashboard
	// SpeedPathScript means the raw script fallback was used.
	SpeedPathScript
)

func (p SpeedPath) String() string {
	switch p {
	case SpeedPathRTDE:
		return "rtde"
	case SpeedPathDashboard:
		return "dashboard"
	case SpeedPathScript:
		return "script"
	default:
		return "none"
	}
}

// SetSpeed sets the controller's speed slider to the given fraction, clamped
// to [0, 1]. The best available interface wins: the RTDE input recipe when
// negotiated, then the dashboard command, then the raw script equivalent.
// The returned path reports which one succeeded.
//
// On every successful path the cached SpeedFraction is updated
// optimistically, because the controller does not always echo the set value
// back; UI-facing reads must not regress while waiting for the next
// telemetry sample to confirm it.
func (c *Client) SetSpeed(fraction float64) (SpeedPath, bool) {
	fraction = clampFraction(fraction)

	if path, ok := c.trySpeedRTDE(fraction); ok {
		c.cacheSpeed(fraction, path)
		return path, true
	}

	if path, ok := c.trySpeedDashboard(fraction); ok {
		c.cacheSpeed(fraction, path)
		return path, true
	}

	if c.SendCommand(urscript.SpeedFraction(fraction)) {
		c.cacheSpeed(fraction, SpeedPathScript)
		return SpeedPathScript, true
	}

	return SpeedPathNone, false
}

func (c *Client) trySpeedRTDE(fraction float64) (SpeedPath, bool) {
	if !c.rtdeUp.Load() {
		return SpeedPathNone, false
	}

	c.mu.Lock()
	conn := c.rtdeConn
	c.mu.Unlock()

	if conn == nil || !conn.SpeedControlSupported() {
		return SpeedPathNone, false
	}

	// Fire-and-forget: the controller sends no confirmation frame.
	if err := conn.WriteSpeedFraction(fraction); err != nil {
		c.logger.Warn("rtde speed write failed", "error", err)
		return SpeedPathNone, false
	}

	return SpeedPathRTDE, true
}

func (c *Client) trySpeedDashboard(fraction float64) (SpeedPath, bool) {
	dash := c.dashboard()
	if dash == nil {
		return SpeedPathNone, false
	}

	command := fmt.Sprintf("set speed %.3f", fraction)
	result, err := dash.Request(dashboard.CmdSetSpeed, command)
	if err != nil {
		c.dashUp.Store(false)
		c.logger.Warn("dashboard speed command failed", "error", err)

		return SpeedPathNone, false
	}

	return SpeedPathDashboard, result.OK
}

func (c *Client) cacheSpeed(fraction float64, path SpeedPath) {
	c.state.Update(func(snap *Snapshot) {
		snap.SpeedFraction = fraction
	})
	c.logger.Info("speed set", "fraction", fraction, "path", path.String())
}

func clampFraction(fraction float64) float64 {
	switch {
	case fraction < 0:
		return 0
	case fraction > 1:
		return 1
	default:
		return fraction
	}
}
