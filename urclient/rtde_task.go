package urclient

import (
	"time"

	"github.com/arloliu/go-ur/rtde"
)

// runtimeState values carried by the RTDE runtime_state field.
const (
	runtimeStateStopped  = 0
	runtimeStatePlaying  = 1
	runtimeStatePausing  = 2
	runtimeStatePaused   = 3
	runtimeStateResuming = 4
)

// rtdeTask reads one RTDE frame per call and folds accepted data packages
// into the snapshot. Any transport error ends the loop; the channel is then
// marked disconnected by the task's cancel hook.
func (c *Client) rtdeTask(conn rtdeChannel, lenBuf []byte) bool {
	pkg, err := conn.Receive(lenBuf)
	if err != nil {
		c.logger.Error("rtde receive failed", "error", err)
		return false
	}
	if pkg == nil {
		// Idle window or a frame not addressed to the output recipe.
		return true
	}

	c.applySample(conn.OutputRecipe(), pkg)

	return true
}

// applySample copies the fields present in the negotiated recipe into the
// snapshot. Fields the firmware declined during negotiation simply keep
// their previous values.
func (c *Client) applySample(recipe *rtde.Recipe, pkg *rtde.DataPackage) {
	var (
		joints, tcp       [6]float64
		haveJoints        bool
		haveTCP           bool
		robotMode         RobotMode
		haveRobotMode     bool
		safetyMode        SafetyMode
		haveSafetyMode    bool
		programState      ProgramState
		haveProgramState  bool
		speedFraction     float64
		haveSpeedFraction bool
	)

	if vals, ok := recipeValues(recipe, pkg, rtde.FieldActualQ, 6); ok {
		copy(joints[:], vals)
		haveJoints = true
	}
	if vals, ok := recipeValues(recipe, pkg, rtde.FieldActualTCPPose, 6); ok {
		copy(tcp[:], vals)
		haveTCP = true
	}
	if vals, ok := recipeValues(recipe, pkg, rtde.FieldRobotMode, 1); ok {
		robotMode = RobotMode(int(vals[0]))
		haveRobotMode = true
	}
	if vals, ok := recipeValues(recipe, pkg, rtde.FieldSafetyMode, 1); ok {
		safetyMode = SafetyMode(int(vals[0]))
		haveSafetyMode = true
	}
	if vals, ok := recipeValues(recipe, pkg, rtde.FieldRuntimeState, 1); ok {
		programState = mapRuntimeState(int(vals[0]))
		haveProgramState = true
	}

	scaling, haveScaling := recipeValue(recipe, pkg, rtde.FieldSpeedScaling)
	target, haveTarget := recipeValue(recipe, pkg, rtde.FieldTargetSpeedFraction)
	if haveScaling || haveTarget {
		speedFraction = pickSpeedFraction(scaling, haveScaling, target, haveTarget)
		haveSpeedFraction = true
	}

	c.state.Update(func(snap *Snapshot) {
		if haveJoints {
			snap.Joints = joints
		}
		if haveTCP {
			snap.TCPPose = tcp
		}
		if haveRobotMode {
			snap.RobotMode = robotMode
		}
		if haveSafetyMode {
			snap.SafetyMode = safetyMode
		}
		if haveSpeedFraction {
			snap.SpeedFraction = speedFraction
		}
		snap.Timestamp = time.Now()
	})

	if haveProgramState {
		// Advisory only: a fresh program command holds the state lock.
		c.state.SetProgramStateAdvisory(programState)
	}
}

func recipeValues(recipe *rtde.Recipe, pkg *rtde.DataPackage, name string, want int) ([]float64, bool) {
	off, count, ok := recipe.Index(name)
	if !ok || count != want || off+count > len(pkg.Values) {
		return nil, false
	}

	return pkg.Values[off : off+count], true
}

func recipeValue(recipe *rtde.Recipe, pkg *rtde.DataPackage, name string) (float64, bool) {
	vals, ok := recipeValues(recipe, pkg, name, 1)
	if !ok {
		return 0, false
	}

	return vals[0], true
}

// mapRuntimeState folds the controller's runtime-state enum into the coarse
// program state.
func mapRuntimeState(state int) ProgramState {
	switch state {
	case runtimeStatePlaying, runtimeStateResuming:
		return ProgramPlaying
	case runtimeStatePausing, runtimeStatePaused:
		return ProgramPaused
	case runtimeStateStopped:
		return ProgramStopped
	default:
		return ProgramStopped
	}
}

// pickSpeedFraction chooses between the two candidate speed fields the
// controller exposes. Their roles vary by firmware version, so this is a
// heuristic: a value strictly inside (0,1) is a believable live reading,
// while a value pinned at 0 or 1 is likely an idle default. When both are
// pinned, the larger wins. speed_scaling is preferred when both readings
// are interior.
func pickSpeedFraction(scaling float64, haveScaling bool, target float64, haveTarget bool) float64 {
	interior := func(v float64) bool { return v > 0 && v < 1 }

	switch {
	case haveScaling && interior(scaling):
		return scaling
	case haveTarget && interior(target):
		return target
	case haveScaling && haveTarget:
		return max(scaling, target)
	case haveScaling:
		return scaling
	default:
		return target
	}
}
