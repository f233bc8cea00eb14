package urclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-ur/rtde"
)

func fullRecipe() *rtde.Recipe {
	return &rtde.Recipe{ID: 1, Fields: rtde.DefaultOutputFields()}
}

// fullSample builds a package for the full recipe with distinct values per
// field.
func fullSample(joints, tcp [6]float64, scaling, target, robotMode, safetyMode, runtimeState float64) *rtde.DataPackage {
	values := make([]float64, 0, 17)
	values = append(values, joints[:]...)
	values = append(values, tcp[:]...)
	values = append(values, scaling, target, robotMode, safetyMode, runtimeState)

	return &rtde.DataPackage{RecipeID: 1, Values: values}
}

func TestApplySample_FullRecipe(t *testing.T) {
	c := newTestClient(t)

	joints := [6]float64{1, 2, 3, 4, 5, 6}
	tcp := [6]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	c.applySample(fullRecipe(), fullSample(joints, tcp, 0.45, 1.0, 7, 1, 1))

	snap := c.state.Snapshot()
	assert.Equal(t, joints, snap.Joints)
	assert.Equal(t, tcp, snap.TCPPose)
	assert.Equal(t, 0.45, snap.SpeedFraction)
	assert.Equal(t, RobotModeRunning, snap.RobotMode)
	assert.Equal(t, SafetyModeNormal, snap.SafetyMode)
	assert.Equal(t, ProgramPlaying, snap.ProgramState)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestApplySample_ReducedRecipe(t *testing.T) {
	c := newTestClient(t)
	c.state.Update(func(snap *Snapshot) {
		snap.SpeedFraction = 0.9
	})

	// Only the joint vector survived negotiation: other fields keep their
	// previous values.
	recipe := &rtde.Recipe{ID: 3, Fields: []rtde.Field{{Name: rtde.FieldActualQ, Count: 6}}}
	pkg := &rtde.DataPackage{RecipeID: 3, Values: []float64{1, 2, 3, 4, 5, 6}}

	c.applySample(recipe, pkg)

	snap := c.state.Snapshot()
	assert.Equal(t, [6]float64{1, 2, 3, 4, 5, 6}, snap.Joints)
	assert.Equal(t, 0.9, snap.SpeedFraction)
}

func TestApplySample_ProgramStateAdvisory(t *testing.T) {
	c := newTestClient(t)

	// A fresh authoritative transition holds the lock; the telemetry sample
	// must not clobber it.
	c.state.SetProgramState(ProgramStopped, c.cfg.stateLockWindow)

	c.applySample(fullRecipe(), fullSample([6]float64{}, [6]float64{}, 0.5, 0.5, 7, 1, 1))

	assert.Equal(t, ProgramStopped, c.state.Snapshot().ProgramState)
}

func TestRTDETask_Errors(t *testing.T) {
	c := newTestClient(t)

	conn := &fakeRTDE{receiveErr: assert.AnError}
	assert.False(t, c.rtdeTask(conn, make([]byte, 2)))

	// A nil package means an idle window; the loop keeps running.
	idle := &fakeRTDE{}
	assert.True(t, c.rtdeTask(idle, make([]byte, 2)))
}

func TestMapRuntimeState(t *testing.T) {
	assert.Equal(t, ProgramStopped, mapRuntimeState(0))
	assert.Equal(t, ProgramPlaying, mapRuntimeState(1))
	assert.Equal(t, ProgramPaused, mapRuntimeState(2))
	assert.Equal(t, ProgramPaused, mapRuntimeState(3))
	assert.Equal(t, ProgramPlaying, mapRuntimeState(4))
	assert.Equal(t, ProgramStopped, mapRuntimeState(42))
}

func TestPickSpeedFraction(t *testing.T) {
	tests := []struct {
		name    string
		scaling float64
		target  float64
		want    float64
	}{
		{"scaling interior", 0.45, 1.0, 0.45},
		{"target interior", 0.0, 0.7, 0.7},
		{"both interior prefers scaling", 0.45, 0.7, 0.45},
		{"both pinned takes larger", 0.0, 1.0, 1.0},
		{"both zero", 0.0, 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickSpeedFraction(tt.scaling, true, tt.target, true)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPickSpeedFraction_SingleCandidate(t *testing.T) {
	assert.Equal(t, 1.0, pickSpeedFraction(1.0, true, 0, false))
	assert.Equal(t, 0.3, pickSpeedFraction(0, false, 0.3, true))
}

func TestRecipeValues_Bounds(t *testing.T) {
	recipe := fullRecipe()

	// A truncated package must not index past its values.
	short := &rtde.DataPackage{RecipeID: 1, Values: []float64{1, 2, 3}}
	_, ok := recipeValues(recipe, short, rtde.FieldActualTCPPose, 6)
	require.False(t, ok)

	_, ok = recipeValue(recipe, short, rtde.FieldRuntimeState)
	require.False(t, ok)
}
