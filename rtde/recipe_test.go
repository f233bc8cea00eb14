package rtde

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeIndex(t *testing.T) {
	r := &Recipe{ID: 1, Fields: DefaultOutputFields()}

	offset, count, ok := r.Index(FieldActualQ)
	require.True(t, ok)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 6, count)

	offset, count, ok = r.Index(FieldActualTCPPose)
	require.True(t, ok)
	assert.Equal(t, 6, offset)
	assert.Equal(t, 6, count)

	offset, count, ok = r.Index(FieldRuntimeState)
	require.True(t, ok)
	assert.Equal(t, 16, offset)
	assert.Equal(t, 1, count)

	_, _, ok = r.Index("nonexistent")
	assert.False(t, ok)
}

func TestRecipeValueCount(t *testing.T) {
	r := &Recipe{Fields: DefaultOutputFields()}
	assert.Equal(t, 17, r.ValueCount())

	reduced := &Recipe{Fields: []Field{{Name: FieldActualQ, Count: 6}}}
	assert.Equal(t, 6, reduced.ValueCount())
}

func TestFieldNames(t *testing.T) {
	assert.Equal(t, "speed_slider_mask,speed_slider_fraction", fieldNames([]Field{
		{Name: "speed_slider_mask", Count: 1},
		{Name: "speed_slider_fraction", Count: 1},
	}))
}
