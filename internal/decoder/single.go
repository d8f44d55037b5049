// Package decoder turns PoseNet output tensors into poses, either one pose by
// independent per-joint argmax or several poses by greedy graph assembly.
package decoder

import (
	"github.com/andresmejia3/posekit/internal/config"
	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/skeleton"
	"github.com/andresmejia3/posekit/internal/tensor"
)

// DecodeSingle picks, for every joint, the most confident cell in the whole
// grid. The skeleton graph is not used. It always returns a fully populated
// pose, however many joints end up invalid.
func DecodeSingle(out *tensor.Output, cfg config.Config, tr pose.Transform) pose.Pose {
	p := pose.New()

	for _, name := range skeleton.Joints() {
		best := tensor.Cell{}
		bestConfidence := out.Confidence(name, best)

		for row := 0; row < out.Height(); row++ {
			for col := 0; col < out.Width(); col++ {
				c := tensor.Cell{Row: row, Col: col}
				// Strict > keeps the first cell found on ties.
				if conf := out.Confidence(name, c); conf > bestConfidence {
					best = c
					bestConfidence = conf
				}
			}
		}

		j := p.Joint(name)
		j.Cell = best
		j.Position = out.Position(name, best)
		j.Confidence = bestConfidence
		j.IsValid = bestConfidence >= cfg.JointConfidenceThreshold
	}

	p.Confidence = p.MeanConfidence()
	p.Apply(tr)
	return p
}
