package decoder

import (
	"github.com/andresmejia3/posekit/internal/skeleton"
	"github.com/andresmejia3/posekit/internal/tensor"
)

var modelSize = tensor.Size{Width: 513, Height: 513}

const stride = 16

// layout places each joint of a planted skeleton relative to its anchor cell.
var layout = [skeleton.NumJoints]tensor.Cell{
	skeleton.Nose:          {Row: 0, Col: 2},
	skeleton.LeftEye:       {Row: 0, Col: 1},
	skeleton.RightEye:      {Row: 0, Col: 3},
	skeleton.LeftEar:       {Row: 0, Col: 0},
	skeleton.RightEar:      {Row: 0, Col: 4},
	skeleton.LeftShoulder:  {Row: 1, Col: 1},
	skeleton.RightShoulder: {Row: 1, Col: 3},
	skeleton.LeftElbow:     {Row: 2, Col: 0},
	skeleton.RightElbow:    {Row: 2, Col: 4},
	skeleton.LeftWrist:     {Row: 3, Col: 0},
	skeleton.RightWrist:    {Row: 3, Col: 4},
	skeleton.LeftHip:       {Row: 3, Col: 1},
	skeleton.RightHip:      {Row: 3, Col: 3},
	skeleton.LeftKnee:      {Row: 4, Col: 1},
	skeleton.RightKnee:     {Row: 4, Col: 3},
	skeleton.LeftAnkle:     {Row: 5, Col: 1},
	skeleton.RightAnkle:    {Row: 5, Col: 3},
}

// plantedCells returns the absolute cells of a skeleton planted at anchor.
func plantedCells(anchor tensor.Cell) [skeleton.NumJoints]tensor.Cell {
	var cells [skeleton.NumJoints]tensor.Cell
	for j, rel := range layout {
		cells[j] = tensor.Cell{Row: anchor.Row + rel.Row, Col: anchor.Col + rel.Col}
	}
	return cells
}

// plantSkeleton writes a heatmap peak of conf for every joint and displacement
// vectors that point exactly between adjacent joints. offsetX is written as
// every joint's x offset so skeletons can be nudged off the cell grid.
func plantSkeleton(out *tensor.Output, anchor tensor.Cell, conf, offsetX float64) {
	cells := plantedCells(anchor)
	for j, c := range cells {
		out.Heatmap.Set(j, c.Row, c.Col, conf)
		out.Offsets.Set(j+skeleton.NumJoints, c.Row, c.Col, offsetX)
	}
	for _, e := range skeleton.Edges() {
		pc, cc := cells[e.Parent], cells[e.Child]
		dy := float64((cc.Row - pc.Row) * stride)
		dx := float64((cc.Col - pc.Col) * stride)
		out.Forward.Set(e.Index, pc.Row, pc.Col, dy)
		out.Forward.Set(e.Index+skeleton.NumEdges, pc.Row, pc.Col, dx)
		out.Backward.Set(e.Index, cc.Row, cc.Col, -dy)
		out.Backward.Set(e.Index+skeleton.NumEdges, cc.Row, cc.Col, -dx)
	}
}

func blank() *tensor.Output {
	return tensor.Blank(modelSize, stride)
}
