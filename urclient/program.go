package urclient

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-ur/dashboard"
)

// LoadProgram loads the named program file on the controller. Success leaves
// the program state unchanged but records the loaded program in the
// snapshot.
func (c *Client) LoadProgram(name string) (dashboard.Result, error) {
	result, err := c.programRequest(dashboard.CmdLoad, "load "+name)
	if err != nil {
		return dashboard.Result{}, err
	}

	if result.OK {
		c.state.Update(func(snap *Snapshot) {
			snap.LoadedProgram = name
		})
		// Arm the lock without changing the state: a poll racing the load may
		// still carry the previous program's state word.
		c.state.SetProgramState(c.state.Snapshot().ProgramState, c.cfg.stateLockWindow)
	}

	return result, nil
}

// PlayProgram starts the loaded program.
func (c *Client) PlayProgram() (dashboard.Result, error) {
	return c.programTransition(dashboard.CmdPlay, "play", ProgramPlaying)
}

// PauseProgram pauses the running program.
func (c *Client) PauseProgram() (dashboard.Result, error) {
	return c.programTransition(dashboard.CmdPause, "pause", ProgramPaused)
}

// StopProgram stops the running program.
func (c *Client) StopProgram() (dashboard.Result, error) {
	return c.programTransition(dashboard.CmdStop, "stop", ProgramStopped)
}

// UnlockProtectiveStop releases a protective stop. It is a direct one-shot
// command with no program-state side effects.
func (c *Client) UnlockProtectiveStop() (dashboard.Result, error) {
	return c.programRequest(dashboard.CmdUnlockProtectiveStop, "unlock protective stop")
}

// programTransition issues a program command and, on success, records the
// optimistic state transition under the state lock so a status poll taken
// right after cannot overwrite it with stale data.
func (c *Client) programTransition(cmd dashboard.Command, command string, next ProgramState) (dashboard.Result, error) {
	result, err := c.programRequest(cmd, command)
	if err != nil {
		return dashboard.Result{}, err
	}

	if result.OK {
		c.state.SetProgramState(next, c.cfg.stateLockWindow)
	}

	return result, nil
}

func (c *Client) programRequest(cmd dashboard.Command, command string) (dashboard.Result, error) {
	dash := c.dashboard()
	if dash == nil {
		return dashboard.Result{}, ErrDashboardUnavailable
	}

	result, err := dash.Request(cmd, command)
	if err != nil {
		c.dashUp.Store(false)
		return dashboard.Result{}, fmt.Errorf("%s: %w", cmd.Name, err)
	}

	c.logger.Info("program command", "command", cmd.Name, "ok", result.OK, "reply", result.Message)

	return result, nil
}

// ProgramState returns the current coarse program state from the snapshot.
func (c *Client) ProgramState() ProgramState {
	return c.state.Snapshot().ProgramState
}

// LoadedProgram returns the program the controller reports as loaded, or an
// empty string when unknown.
func (c *Client) LoadedProgram() string {
	return strings.TrimSpace(c.state.Snapshot().LoadedProgram)
}
