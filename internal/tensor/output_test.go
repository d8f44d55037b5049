package tensor

import (
	"errors"
	"testing"

	"github.com/andresmejia3/posekit/internal/skeleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

var modelSize = Size{Width: 513, Height: 513}

func TestBlankGeometry(t *testing.T) {
	out := Blank(modelSize, 16)
	assert.Equal(t, 33, out.Height())
	assert.Equal(t, 33, out.Width())
	assert.True(t, out.Offsets.Shape(34, 33, 33))
	assert.True(t, out.Forward.Shape(32, 33, 33))
}

func TestPositionAddsOffset(t *testing.T) {
	out := Blank(modelSize, 16)
	c := Cell{Row: 2, Col: 5}
	out.Offsets.Set(int(skeleton.LeftWrist), c.Row, c.Col, -3)                    // y
	out.Offsets.Set(int(skeleton.LeftWrist)+skeleton.NumJoints, c.Row, c.Col, 1.5) // x

	got := out.Position(skeleton.LeftWrist, c)
	assert.InDelta(t, 5*16+1.5, got.X, 1e-6)
	assert.InDelta(t, 2*16-3, got.Y, 1e-6)

	// Other joints see no offset.
	assert.Equal(t, r2.Vec{X: 80, Y: 32}, out.Position(skeleton.Nose, c))
}

func TestCellForRoundTrip(t *testing.T) {
	out := Blank(modelSize, 16)
	for row := 0; row < out.Height(); row++ {
		for col := 0; col < out.Width(); col++ {
			c := Cell{Row: row, Col: col}
			got, ok := out.CellFor(out.Position(skeleton.Nose, c))
			require.True(t, ok)
			require.Equal(t, c, got)
		}
	}
}

func TestCellForBounds(t *testing.T) {
	out := Blank(modelSize, 16)
	tests := []struct {
		name string
		p    r2.Vec
		want Cell
		ok   bool
	}{
		{"rounds down", r2.Vec{X: 23.9, Y: 7.9}, Cell{Row: 0, Col: 1}, true},
		{"rounds half up", r2.Vec{X: 24, Y: 8}, Cell{Row: 1, Col: 2}, true},
		{"last cell", r2.Vec{X: 512, Y: 519}, Cell{Row: 32, Col: 32}, true},
		{"past bottom", r2.Vec{X: 0, Y: 520}, Cell{}, false},
		{"negative", r2.Vec{X: -9, Y: 0}, Cell{}, false},
		{"slightly negative rounds to zero", r2.Vec{X: -7, Y: 0}, Cell{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := out.CellFor(tt.p)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisplacementChannels(t *testing.T) {
	out := Blank(modelSize, 16)
	c := Cell{Row: 4, Col: 4}
	out.Forward.Set(3, c.Row, c.Col, 10)
	out.Forward.Set(3+skeleton.NumEdges, c.Row, c.Col, -20)
	out.Backward.Set(3, c.Row, c.Col, 1)

	assert.Equal(t, r2.Vec{X: -20, Y: 10}, out.ForwardDisplacement(3, c))
	assert.Equal(t, r2.Vec{X: 0, Y: 1}, out.BackwardDisplacement(3, c))
}

func TestOutOfRangeReadPanics(t *testing.T) {
	out := Blank(modelSize, 16)
	assert.Panics(t, func() { out.Confidence(skeleton.Nose, Cell{Row: 33, Col: 0}) })
	assert.Panics(t, func() { out.Confidence(skeleton.Joint(17), Cell{}) })
}

func TestNewOutputValidatesShape(t *testing.T) {
	b := Blank(modelSize, 16)
	_, err := NewOutput(b.Heatmap, b.Offsets, b.Forward, b.Backward, modelSize, 16)
	require.NoError(t, err)

	bad := NewTensor3(2*skeleton.NumEdges-1, 33, 33)
	_, err = NewOutput(b.Heatmap, b.Offsets, bad, b.Backward, modelSize, 16)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = NewOutput(b.Heatmap, b.Offsets, b.Forward, b.Backward, modelSize, 0)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
