// Package pose defines the decoded joint and pose records.
package pose

import (
	"github.com/andresmejia3/posekit/internal/skeleton"
	"github.com/andresmejia3/posekit/internal/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// Joint is one decoded landmark.
type Joint struct {
	Name       skeleton.Joint
	Position   r2.Vec
	Cell       tensor.Cell
	Confidence float64
	IsValid    bool
}

// Pose owns one Joint per skeleton.Joint, indexed by the joint itself.
type Pose struct {
	Joints     [skeleton.NumJoints]Joint
	Confidence float64
}

// New returns a pose whose joints are named but otherwise zero and invalid.
func New() Pose {
	var p Pose
	for i := range p.Joints {
		p.Joints[i].Name = skeleton.Joint(i)
	}
	return p
}

// Joint returns a pointer to the pose's own record for j.
func (p *Pose) Joint(j skeleton.Joint) *Joint {
	return &p.Joints[j]
}

// ValidCount counts joints marked valid.
func (p *Pose) ValidCount() int {
	n := 0
	for _, j := range p.Joints {
		if j.IsValid {
			n++
		}
	}
	return n
}

// MeanConfidence averages the raw confidence of every joint, valid or not.
func (p *Pose) MeanConfidence() float64 {
	var scores [skeleton.NumJoints]float64
	for i, j := range p.Joints {
		scores[i] = j.Confidence
	}
	return floats.Sum(scores[:]) / skeleton.NumJoints
}

// Apply maps every joint position through tr.
func (p *Pose) Apply(tr Transform) {
	for i := range p.Joints {
		p.Joints[i].Position = tr.Apply(p.Joints[i].Position)
	}
}
