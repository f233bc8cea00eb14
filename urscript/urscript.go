// Package urscript builds URScript snippets for the controller's script
// port.
//
// The script port executes single-line statements immediately, but parses a
// multi-line payload statement by statement unless it is wrapped in a named
// procedure. Wrap applies that rule; the jog and move builders emit
// ready-to-send procedures for common relative and absolute motions.
//
// All angle parameters are taken in degrees and converted to radians at this
// boundary; distances are taken in millimeters and converted to meters.
// Poses are expressed in meters and radians, matching the controller's
// native units.
package urscript

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// wrapperName is the procedure name used for wrapped multi-line payloads.
const wrapperName = "secondary_program"

// cartesianAxes maps a cartesian axis to its pose index.
var cartesianAxes = map[string]int{"x": 0, "y": 1, "z": 2}

// rotationAxes maps a rotation axis to its pose index.
var rotationAxes = map[string]int{"rx": 3, "ry": 4, "rz": 5}

// Wrap prepares a script body for the script port. A body with internal
// newlines that does not already define a procedure is wrapped as
//
//	def secondary_program():
//	<body>
//	end
//
// so the controller treats it as one program. Single-line bodies pass
// through unchanged and execute immediately.
func Wrap(script string) string {
	body := strings.TrimRight(script, "\n")

	if !strings.Contains(body, "\n") {
		return body
	}
	if definesProcedure(body) {
		return body
	}

	return "def " + wrapperName + "():\n" + body + "\nend"
}

// definesProcedure reports whether any line of the body opens a URScript
// procedure definition.
func definesProcedure(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "def ") {
			return true
		}
	}

	return false
}

// SpeedFraction returns the script statement that sets the speed slider.
func SpeedFraction(fraction float64) string {
	return fmt.Sprintf("set_speed_slider_fraction(%s)", formatFloat(fraction))
}

// StopJoints returns the script statement that decelerates all joints to a
// stop at the given rate (rad/s^2).
func StopJoints(decel float64) string {
	return fmt.Sprintf("stopj(%s)", formatFloat(decel))
}

// TranslateTCP builds a procedure that moves the tool linearly along one
// cartesian axis by the given distance in millimeters. positive selects the
// motion direction.
func TranslateTCP(axis string, mm float64, positive bool) (string, error) {
	idx, ok := cartesianAxes[strings.ToLower(axis)]
	if !ok {
		return "", fmt.Errorf("urscript: invalid cartesian axis %q", axis)
	}

	return relativeMove("jog_"+strings.ToLower(axis), idx, mm/1000.0, positive, "movel", "get_actual_tcp_pose"), nil
}

// RotateTCP builds a procedure that rotates the tool around one rotation
// axis by the given angle in degrees.
func RotateTCP(axis string, deg float64, positive bool) (string, error) {
	idx, ok := rotationAxes[strings.ToLower(axis)]
	if !ok {
		return "", fmt.Errorf("urscript: invalid rotation axis %q", axis)
	}

	return relativeMove("jog_"+strings.ToLower(axis), idx, radians(deg), positive, "movel", "get_actual_tcp_pose"), nil
}

// JogJoint builds a procedure that moves a single joint (1-based) by the
// given angle in degrees.
func JogJoint(joint int, deg float64, positive bool) (string, error) {
	if joint < 1 || joint > 6 {
		return "", fmt.Errorf("urscript: joint %d out of range [1, 6]", joint)
	}

	name := fmt.Sprintf("jog_j%d", joint)

	return relativeMove(name, joint-1, radians(deg), positive, "movej", "get_actual_joint_positions"), nil
}

// MoveJoints builds an absolute movej statement. Joint targets are given in
// degrees; speed (rad/s) and accel (rad/s^2) pass through unchanged.
func MoveJoints(jointsDeg [6]float64, speed, accel float64) string {
	targets := make([]string, len(jointsDeg))
	for i, deg := range jointsDeg {
		targets[i] = formatFloat(radians(deg))
	}

	return fmt.Sprintf("movej([%s], a=%s, v=%s)",
		strings.Join(targets, ","), formatFloat(accel), formatFloat(speed))
}

// MoveTCP builds an absolute movel statement. The pose is given in meters
// and radians; speed (m/s) and accel (m/s^2) pass through unchanged.
func MoveTCP(pose [6]float64, speed, accel float64) string {
	coords := make([]string, len(pose))
	for i, v := range pose {
		coords[i] = formatFloat(v)
	}

	return fmt.Sprintf("movel(p[%s], a=%s, v=%s)",
		strings.Join(coords, ","), formatFloat(accel), formatFloat(speed))
}

// relativeMove builds a procedure that reads the current pose or joint
// vector, offsets one component, and issues the given move command.
func relativeMove(name string, index int, delta float64, positive bool, moveCmd, readCmd string) string {
	dir := name + "_neg"
	sign := "-"
	if positive {
		dir = name + "_pos"
		sign = "+"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "def %s():\n", dir)
	fmt.Fprintf(&b, "  target = %s()\n", readCmd)
	fmt.Fprintf(&b, "  target[%d] = target[%d] %s %s\n", index, index, sign, formatFloat(delta))
	fmt.Fprintf(&b, "  %s(target, a=1, v=1, t=0, r=0)\n", moveCmd)
	b.WriteString("end")

	return b.String()
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
