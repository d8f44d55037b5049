package pose

import (
	"testing"

	"github.com/andresmejia3/posekit/internal/skeleton"
	"github.com/andresmejia3/posekit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestNewPoseNamesJoints(t *testing.T) {
	p := New()
	for i, j := range p.Joints {
		assert.Equal(t, skeleton.Joint(i), j.Name)
		assert.False(t, j.IsValid)
	}
	assert.Zero(t, p.ValidCount())
}

func TestPosesDoNotShareJoints(t *testing.T) {
	a := New()
	b := a
	b.Joint(skeleton.Nose).Confidence = 0.7
	assert.Zero(t, a.Joint(skeleton.Nose).Confidence)
}

func TestMeanConfidenceCountsInvalidJoints(t *testing.T) {
	p := New()
	for i := range p.Joints {
		p.Joints[i].Confidence = 0.05
	}
	p.Joint(skeleton.Nose).Confidence = 0.9
	p.Joint(skeleton.Nose).IsValid = true

	want := (0.9 + 16*0.05) / 17
	assert.InDelta(t, want, p.MeanConfidence(), 1e-12)
	assert.Equal(t, 1, p.ValidCount())
}

func TestTransform(t *testing.T) {
	tr := NewTransform(tensor.Size{Width: 1026, Height: 257}, tensor.Size{Width: 513, Height: 513})
	assert.InDelta(t, 2.0, tr.ScaleX, 1e-12)
	assert.InDelta(t, 257.0/513.0, tr.ScaleY, 1e-12)

	p := New()
	p.Joint(skeleton.LeftKnee).Position = r2.Vec{X: 10, Y: 513}
	p.Apply(tr)
	assert.InDelta(t, 20, p.Joint(skeleton.LeftKnee).Position.X, 1e-9)
	assert.InDelta(t, 257, p.Joint(skeleton.LeftKnee).Position.Y, 1e-9)

	assert.Equal(t, Identity, NewTransform(tensor.Size{Width: 10, Height: 10}, tensor.Size{}))
}
