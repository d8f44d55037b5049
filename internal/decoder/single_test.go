package decoder

import (
	"testing"

	"github.com/andresmejia3/posekit/internal/config"
	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/skeleton"
	"github.com/andresmejia3/posekit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSingleSharpPeak(t *testing.T) {
	out := blank()
	for _, j := range skeleton.Joints() {
		out.Heatmap.Set(int(j), 10, 10, 0.9)
	}
	tr := pose.Transform{ScaleX: 2, ScaleY: 0.5}

	p := DecodeSingle(out, config.Default(), tr)

	for _, j := range p.Joints {
		assert.Equal(t, tensor.Cell{Row: 10, Col: 10}, j.Cell, j.Name.String())
		assert.InDelta(t, 320, j.Position.X, 1e-9)
		assert.InDelta(t, 80, j.Position.Y, 1e-9)
		assert.True(t, j.IsValid)
	}
	assert.InDelta(t, 0.9, p.Confidence, 1e-6)
}

func TestDecodeSingleValidityMatchesThreshold(t *testing.T) {
	out := blank()
	for i, j := range skeleton.Joints() {
		// Scores 0.00, 0.05, 0.10, ... straddle the 0.1 threshold.
		out.Heatmap.Set(int(j), i, 2*i%33, float64(i)*0.05)
	}

	cfg := config.Default()
	p := DecodeSingle(out, cfg, pose.Identity)

	require.Len(t, p.Joints, skeleton.NumJoints)
	var sum float64
	for _, j := range p.Joints {
		assert.Equal(t, j.Confidence >= cfg.JointConfidenceThreshold, j.IsValid, j.Name.String())
		sum += j.Confidence
	}
	assert.InDelta(t, sum/skeleton.NumJoints, p.Confidence, 1e-12)
	assert.False(t, p.Joint(skeleton.Nose).IsValid)
	assert.True(t, p.Joint(skeleton.RightAnkle).IsValid)
}

func TestDecodeSingleTieKeepsFirstCell(t *testing.T) {
	out := blank()
	out.Heatmap.Set(int(skeleton.Nose), 5, 1, 0.6)
	out.Heatmap.Set(int(skeleton.Nose), 3, 7, 0.6)
	out.Heatmap.Set(int(skeleton.LeftEye), 4, 9, 0.6)
	out.Heatmap.Set(int(skeleton.LeftEye), 4, 2, 0.6)

	p := DecodeSingle(out, config.Default(), pose.Identity)

	assert.Equal(t, tensor.Cell{Row: 3, Col: 7}, p.Joint(skeleton.Nose).Cell)
	assert.Equal(t, tensor.Cell{Row: 4, Col: 2}, p.Joint(skeleton.LeftEye).Cell)
	// An all-zero channel resolves to the origin cell.
	assert.Equal(t, tensor.Cell{}, p.Joint(skeleton.RightKnee).Cell)
}

func TestDecodeSingleAppliesOffsets(t *testing.T) {
	out := blank()
	out.Heatmap.Set(int(skeleton.LeftHip), 6, 8, 0.8)
	out.Offsets.Set(int(skeleton.LeftHip), 6, 8, 4)
	out.Offsets.Set(int(skeleton.LeftHip)+skeleton.NumJoints, 6, 8, -2)

	p := DecodeSingle(out, config.Default(), pose.Identity)

	hip := p.Joint(skeleton.LeftHip)
	assert.InDelta(t, 8*16-2, hip.Position.X, 1e-9)
	assert.InDelta(t, 6*16+4, hip.Position.Y, 1e-9)
}
