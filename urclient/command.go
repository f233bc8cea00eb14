package urclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-ur/dashboard"
	"github.com/arloliu/go-ur/urscript"
)

// sendDeadline bounds one script write. The script port accepts input
// immediately; a stalled write means the connection is effectively gone.
const sendDeadline = 2 * time.Second

// SendCommand sends URScript text over the command channel. A trailing
// newline is appended if absent, and a multi-line body without a procedure
// definition is wrapped as a secondary program so the controller executes it
// as one unit. The protocol is one-way: no response is read.
//
// It returns false and marks the channel disconnected on any write error.
func (c *Client) SendCommand(script string) bool {
	if !c.cmdUp.Load() {
		c.logger.Warn("send command while disconnected")
		return false
	}

	c.mu.Lock()
	conn := c.cmdConn
	c.mu.Unlock()

	if conn == nil {
		return false
	}

	payload := urscript.Wrap(script)
	if !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}

	if err := conn.SetWriteDeadline(time.Now().Add(sendDeadline)); err != nil {
		c.cmdUp.Store(false)
		c.logger.Error("command channel lost", "error", err)

		return false
	}

	if _, err := conn.Write([]byte(payload)); err != nil {
		c.cmdUp.Store(false)
		c.logger.Error("command write failed", "error", err)

		return false
	}

	c.logger.Debug("script sent", "bytes", len(payload))

	return true
}

// TranslateTCP jogs the tool linearly along a cartesian axis ("x", "y",
// "z") by the given distance in millimeters.
func (c *Client) TranslateTCP(axis string, mm float64, positive bool) error {
	script, err := urscript.TranslateTCP(axis, mm, positive)
	if err != nil {
		return err
	}

	return c.sendMotion(script)
}

// RotateTCP jogs the tool around a rotation axis ("rx", "ry", "rz") by the
// given angle in degrees.
func (c *Client) RotateTCP(axis string, deg float64, positive bool) error {
	script, err := urscript.RotateTCP(axis, deg, positive)
	if err != nil {
		return err
	}

	return c.sendMotion(script)
}

// JogJoint jogs one joint (1-based) by the given angle in degrees.
func (c *Client) JogJoint(joint int, deg float64, positive bool) error {
	script, err := urscript.JogJoint(joint, deg, positive)
	if err != nil {
		return err
	}

	return c.sendMotion(script)
}

// MoveJoints moves all six joints to absolute targets given in degrees.
func (c *Client) MoveJoints(jointsDeg [6]float64, speed, accel float64) error {
	return c.sendMotion(urscript.MoveJoints(jointsDeg, speed, accel))
}

// MoveTCP moves the tool to an absolute pose in meters and radians.
func (c *Client) MoveTCP(pose [6]float64, speed, accel float64) error {
	return c.sendMotion(urscript.MoveTCP(pose, speed, accel))
}

func (c *Client) sendMotion(script string) error {
	if !c.SendCommand(script) {
		return fmt.Errorf("send motion script: %w", ErrNotConnected)
	}

	return nil
}

// EmergencyStop halts motion through both control paths at once: a stopj
// script on the command channel and a dashboard stop for the controller UI.
// It reports success if either path got through.
func (c *Client) EmergencyStop() bool {
	scriptOK := c.SendCommand(urscript.StopJoints(10))

	dashOK := false
	if dash := c.dashboard(); dash != nil {
		result, err := dash.Request(dashboard.CmdStop, "stop")
		if err != nil {
			c.dashUp.Store(false)
			c.logger.Error("dashboard stop failed", "error", err)
		} else {
			dashOK = result.OK
		}
	}

	if scriptOK || dashOK {
		c.state.SetProgramState(ProgramStopped, c.cfg.stateLockWindow)
		return true
	}

	return false
}
