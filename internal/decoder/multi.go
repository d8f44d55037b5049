package decoder

import (
	"sort"

	"github.com/andresmejia3/posekit/internal/config"
	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/skeleton"
	"github.com/andresmejia3/posekit/internal/tensor"
	"gonum.org/v1/gonum/spatial/r2"
)

// Candidate is a locally maximal joint detection used to seed a pose.
type Candidate struct {
	Joint      skeleton.Joint
	Cell       tensor.Cell
	Position   r2.Vec
	Confidence float64
}

// DecodeMulti returns up to cfg.MaxPoseCount poses in acceptance order. Roots
// are tried from most to least confident; each is grown across the skeleton
// using the displacement fields, and poses that mostly repeat an accepted one
// are dropped by the confidence threshold.
func DecodeMulti(out *tensor.Output, cfg config.Config, tr pose.Transform) []pose.Pose {
	var poses []pose.Pose

	for _, cand := range RootCandidates(out, cfg) {
		if len(poses) >= cfg.MaxPoseCount {
			break
		}
		if alreadyCovered(poses, cand.Joint, cand.Position, cfg.MatchingJointDistance) {
			continue
		}

		p := assemble(out, cfg, cand)
		p.Confidence = nonOverlappingConfidence(poses, &p, cfg.MatchingJointDistance)
		if p.Confidence < cfg.PoseConfidenceThreshold {
			continue
		}
		poses = append(poses, p)
	}

	for i := range poses {
		poses[i].Apply(tr)
	}
	return poses
}

// RootCandidates scans every joint channel for cells that pass the joint
// threshold and are not beaten by any neighbour in a square window of
// cfg.LocalSearchRadius cells. The result is sorted by confidence, highest
// first; equal scores keep scan order (joint, row, column).
//
// Neighbours are only compared when both their row and their column differ
// from the centre's, so the centre's own row and column are never examined.
func RootCandidates(out *tensor.Output, cfg config.Config) []Candidate {
	var candidates []Candidate

	for _, name := range skeleton.Joints() {
		for row := 0; row < out.Height(); row++ {
			for col := 0; col < out.Width(); col++ {
				c := tensor.Cell{Row: row, Col: col}
				conf := out.Confidence(name, c)
				if conf < cfg.JointConfidenceThreshold {
					continue
				}
				if !isLocalMaximum(out, name, c, conf, cfg.LocalSearchRadius) {
					continue
				}
				candidates = append(candidates, Candidate{
					Joint:      name,
					Cell:       c,
					Position:   out.Position(name, c),
					Confidence: conf,
				})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

func isLocalMaximum(out *tensor.Output, name skeleton.Joint, center tensor.Cell, conf float64, radius int) bool {
	rowStart, rowEnd := max(center.Row-radius, 0), min(center.Row+radius, out.Height()-1)
	colStart, colEnd := max(center.Col-radius, 0), min(center.Col+radius, out.Width()-1)

	for row := rowStart; row <= rowEnd; row++ {
		for col := colStart; col <= colEnd; col++ {
			if row == center.Row || col == center.Col {
				continue
			}
			if out.Confidence(name, tensor.Cell{Row: row, Col: col}) > conf {
				return false
			}
		}
	}
	return true
}

// alreadyCovered reports whether an accepted pose has a valid joint of the same
// name within dist (inclusive) of position.
func alreadyCovered(poses []pose.Pose, name skeleton.Joint, position r2.Vec, dist float64) bool {
	for i := range poses {
		j := poses[i].Joint(name)
		if j.IsValid && r2.Norm(r2.Sub(j.Position, position)) <= dist {
			return true
		}
	}
	return false
}

// assemble grows a pose breadth-first from the root candidate. Each edge is
// resolved at most once: a joint is only queued after it becomes valid, and
// edges whose endpoints are both valid are skipped.
func assemble(out *tensor.Output, cfg config.Config, root Candidate) pose.Pose {
	p := pose.New()

	r := p.Joint(root.Joint)
	r.Cell = root.Cell
	r.Position = root.Position
	r.Confidence = root.Confidence
	r.IsValid = root.Confidence >= cfg.JointConfidenceThreshold

	queue := []skeleton.Joint{root.Joint}
	for len(queue) > 0 {
		source := queue[0]
		queue = queue[1:]

		for _, edge := range skeleton.EdgesOf(source) {
			target, forward := edge.Other(source)
			if p.Joint(target).IsValid {
				continue
			}
			if resolveAdjacent(out, cfg, &p, source, target, edge.Index, forward) {
				queue = append(queue, target)
			}
		}
	}
	return p
}

// resolveAdjacent follows the displacement vector from source to target,
// refines the landing point with the target's offsets and fills in the target
// joint. It returns whether the target became valid.
func resolveAdjacent(out *tensor.Output, cfg config.Config, p *pose.Pose, source, target skeleton.Joint, edgeIndex int, forward bool) bool {
	src := p.Joint(source)

	var displacement r2.Vec
	if forward {
		displacement = out.ForwardDisplacement(edgeIndex, src.Cell)
	} else {
		displacement = out.BackwardDisplacement(edgeIndex, src.Cell)
	}

	approx := r2.Add(src.Position, displacement)
	for step := 0; step < cfg.AdjacentJointOffsetRefinementSteps; step++ {
		c, ok := out.CellFor(approx)
		if !ok {
			break
		}
		approx = out.Position(target, c)
	}

	c, ok := out.CellFor(approx)
	if !ok {
		return false
	}

	j := p.Joint(target)
	j.Cell = c
	j.Position = approx
	j.Confidence = out.Confidence(target, c)
	j.IsValid = j.Confidence >= cfg.JointConfidenceThreshold
	return j.IsValid
}

// nonOverlappingConfidence sums the confidence of valid joints that no accepted
// pose already covers and divides by the full joint count.
func nonOverlappingConfidence(accepted []pose.Pose, p *pose.Pose, dist float64) float64 {
	var total float64
	for _, j := range p.Joints {
		if !j.IsValid || alreadyCovered(accepted, j.Name, j.Position, dist) {
			continue
		}
		total += j.Confidence
	}
	return total / skeleton.NumJoints
}
