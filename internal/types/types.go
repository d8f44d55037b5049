package types

import (
	"github.com/andresmejia3/posekit/internal/pose"
)

// FrameTask represents a single frame sent to a worker for processing.
// Data is either an encoded tensor bundle or raw image bytes for an inference worker.
type FrameTask struct {
	Index int
	Data  []byte
}

// FrameResult carries the decoded poses for one frame back to the aggregator.
type FrameResult struct {
	Index int
	Poses []pose.Pose
	Err   error
}

// JointResult is the JSON form of a decoded joint.
type JointResult struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Row        int     `json:"row"`
	Col        int     `json:"col"`
	Confidence float64 `json:"confidence"`
	Valid      bool    `json:"valid"`
}

// PoseResult is the JSON form of a decoded pose.
type PoseResult struct {
	Confidence float64       `json:"confidence"`
	Joints     []JointResult `json:"joints"`
}

// FromPose flattens a pose into its JSON form, joints in skeleton order.
func FromPose(p pose.Pose) PoseResult {
	res := PoseResult{
		Confidence: p.Confidence,
		Joints:     make([]JointResult, 0, len(p.Joints)),
	}
	for _, j := range p.Joints {
		res.Joints = append(res.Joints, JointResult{
			Name:       j.Name.String(),
			X:          j.Position.X,
			Y:          j.Position.Y,
			Row:        j.Cell.Row,
			Col:        j.Cell.Col,
			Confidence: j.Confidence,
			Valid:      j.IsValid,
		})
	}
	return res
}

// FromPoses converts every pose.
func FromPoses(poses []pose.Pose) []PoseResult {
	out := make([]PoseResult, 0, len(poses))
	for _, p := range poses {
		out = append(out, FromPose(p))
	}
	return out
}
