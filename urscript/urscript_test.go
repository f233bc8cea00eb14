package urscript

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_SingleLine(t *testing.T) {
	assert.Equal(t, "set_digital_out(0, True)", Wrap("set_digital_out(0, True)"))
	assert.Equal(t, "movej([0,0,0,0,0,0], a=1, v=1)", Wrap("movej([0,0,0,0,0,0], a=1, v=1)\n"))
}

func TestWrap_MultiLine(t *testing.T) {
	wrapped := Wrap("a=1\nb=2")
	assert.Equal(t, "def secondary_program():\na=1\nb=2\nend", wrapped)
}

func TestWrap_TrailingNewlines(t *testing.T) {
	wrapped := Wrap("a=1\nb=2\n\n")
	assert.Equal(t, "def secondary_program():\na=1\nb=2\nend", wrapped)
}

func TestWrap_ExistingProcedure(t *testing.T) {
	body := "def my_prog():\n  a=1\nend"
	assert.Equal(t, body, Wrap(body))

	indented := "  def my_prog():\n  a=1\nend"
	assert.Equal(t, indented, Wrap(indented))
}

func TestSpeedFraction(t *testing.T) {
	assert.Equal(t, "set_speed_slider_fraction(0.5)", SpeedFraction(0.5))
	assert.Equal(t, "set_speed_slider_fraction(1)", SpeedFraction(1.0))
}

func TestStopJoints(t *testing.T) {
	assert.Equal(t, "stopj(10)", StopJoints(10))
}

func TestTranslateTCP(t *testing.T) {
	script, err := TranslateTCP("x", 50, true)
	require.NoError(t, err)
	assert.Equal(t, "def jog_x_pos():\n"+
		"  target = get_actual_tcp_pose()\n"+
		"  target[0] = target[0] + 0.05\n"+
		"  movel(target, a=1, v=1, t=0, r=0)\n"+
		"end", script)

	script, err = TranslateTCP("Z", 10, false)
	require.NoError(t, err)
	assert.Contains(t, script, "def jog_z_neg():")
	assert.Contains(t, script, "target[2] = target[2] - 0.01")
}

func TestTranslateTCP_InvalidAxis(t *testing.T) {
	_, err := TranslateTCP("rx", 10, true)
	require.Error(t, err)
}

func TestRotateTCP(t *testing.T) {
	script, err := RotateTCP("ry", 90, true)
	require.NoError(t, err)
	assert.Contains(t, script, "def jog_ry_pos():")
	assert.Contains(t, script, "target = get_actual_tcp_pose()")
	assert.Contains(t, script, "target[4] = target[4] + "+strconv.FormatFloat(math.Pi/2, 'g', -1, 64))
	assert.Contains(t, script, "movel(target, a=1, v=1, t=0, r=0)")
}

func TestRotateTCP_InvalidAxis(t *testing.T) {
	_, err := RotateTCP("x", 10, true)
	require.Error(t, err)
}

func TestJogJoint(t *testing.T) {
	script, err := JogJoint(3, 45, false)
	require.NoError(t, err)
	assert.Contains(t, script, "def jog_j3_neg():")
	assert.Contains(t, script, "target = get_actual_joint_positions()")
	assert.Contains(t, script, "target[2] = target[2] - "+strconv.FormatFloat(math.Pi/4, 'g', -1, 64))
	assert.Contains(t, script, "movej(target, a=1, v=1, t=0, r=0)")
}

func TestJogJoint_OutOfRange(t *testing.T) {
	_, err := JogJoint(0, 10, true)
	require.Error(t, err)

	_, err = JogJoint(7, 10, true)
	require.Error(t, err)
}

func TestJogScripts_WrapUnchanged(t *testing.T) {
	script, err := JogJoint(1, 10, true)
	require.NoError(t, err)
	assert.Equal(t, script, Wrap(script))
}

func TestMoveJoints(t *testing.T) {
	script := MoveJoints([6]float64{90, 0, 0, 0, 0, 0}, 1.05, 1.4)
	require.True(t, strings.HasPrefix(script, "movej(["))
	assert.Contains(t, script, strconv.FormatFloat(math.Pi/2, 'g', -1, 64))
	assert.Contains(t, script, "a=1.4")
	assert.Contains(t, script, "v=1.05")
}

func TestMoveTCP(t *testing.T) {
	script := MoveTCP([6]float64{0.1, -0.2, 0.3, 0, 3.14, 0}, 0.25, 1.2)
	assert.Equal(t, "movel(p[0.1,-0.2,0.3,0,3.14,0], a=1.2, v=0.25)", script)
}
