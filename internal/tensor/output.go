package tensor

import (
	"fmt"
	"math"

	"github.com/andresmejia3/posekit/internal/skeleton"
	"gonum.org/v1/gonum/spatial/r2"
)

// Cell is an integer (row, col) coordinate into the output grid.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// GridSize returns the number of output cells along one axis for a model
// input dimension and output stride.
func GridSize(modelInput, stride int) int {
	return modelInput/stride + 1
}

// Output bundles the four model output tensors with the geometry needed to map
// grid cells back into model input space. It is never mutated during a decode.
type Output struct {
	Heatmap        Tensor3 // [NumJoints][h][w]
	Offsets        Tensor3 // [2*NumJoints][h][w]; y channels first
	Forward        Tensor3 // [2*NumEdges][h][w]
	Backward       Tensor3 // [2*NumEdges][h][w]
	ModelInputSize Size
	OutputStride   int
}

// NewOutput checks the channel layout against the skeleton and returns the view.
func NewOutput(heatmap, offsets, forward, backward Tensor3, modelInputSize Size, stride int) (*Output, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("%w: output stride must be positive, got %d", ErrShapeMismatch, stride)
	}
	h, w := heatmap.Rows, heatmap.Cols
	checks := []struct {
		name     string
		t        Tensor3
		channels int
	}{
		{"heatmap", heatmap, skeleton.NumJoints},
		{"offsets", offsets, 2 * skeleton.NumJoints},
		{"forward displacement", forward, 2 * skeleton.NumEdges},
		{"backward displacement", backward, 2 * skeleton.NumEdges},
	}
	for _, c := range checks {
		if !c.t.Shape(c.channels, h, w) {
			return nil, fmt.Errorf("%w: %s is [%d][%d][%d] (%d values), want [%d][%d][%d]",
				ErrShapeMismatch, c.name, c.t.Channels, c.t.Rows, c.t.Cols, len(c.t.Data), c.channels, h, w)
		}
	}
	return &Output{
		Heatmap:        heatmap,
		Offsets:        offsets,
		Forward:        forward,
		Backward:       backward,
		ModelInputSize: modelInputSize,
		OutputStride:   stride,
	}, nil
}

// Blank returns a zero-filled output whose grid is derived from the model
// input size and stride.
func Blank(modelInputSize Size, stride int) *Output {
	h := GridSize(modelInputSize.Height, stride)
	w := GridSize(modelInputSize.Width, stride)
	return &Output{
		Heatmap:        NewTensor3(skeleton.NumJoints, h, w),
		Offsets:        NewTensor3(2*skeleton.NumJoints, h, w),
		Forward:        NewTensor3(2*skeleton.NumEdges, h, w),
		Backward:       NewTensor3(2*skeleton.NumEdges, h, w),
		ModelInputSize: modelInputSize,
		OutputStride:   stride,
	}
}

// Height is the number of grid rows.
func (o *Output) Height() int { return o.Heatmap.Rows }

// Width is the number of grid columns.
func (o *Output) Width() int { return o.Heatmap.Cols }

// Position maps a cell to model space: the stride-scaled cell plus the
// joint's sub-cell offset vector.
func (o *Output) Position(j skeleton.Joint, c Cell) r2.Vec {
	coarse := r2.Vec{
		X: float64(c.Col * o.OutputStride),
		Y: float64(c.Row * o.OutputStride),
	}
	return r2.Add(coarse, o.offset(j, c))
}

func (o *Output) offset(j skeleton.Joint, c Cell) r2.Vec {
	return r2.Vec{
		X: o.Offsets.At(int(j)+skeleton.NumJoints, c.Row, c.Col),
		Y: o.Offsets.At(int(j), c.Row, c.Col),
	}
}

// CellFor rounds a model-space point to its nearest cell. It returns false when
// the cell falls outside the grid.
func (o *Output) CellFor(p r2.Vec) (Cell, bool) {
	stride := float64(o.OutputStride)
	y := math.Round(p.Y / stride)
	x := math.Round(p.X / stride)
	if math.IsNaN(x) || math.IsNaN(y) {
		return Cell{}, false
	}
	if y < 0 || y >= float64(o.Height()) || x < 0 || x >= float64(o.Width()) {
		return Cell{}, false
	}
	return Cell{Row: int(y), Col: int(x)}, true
}

// Confidence reads the heatmap score for joint j at c.
func (o *Output) Confidence(j skeleton.Joint, c Cell) float64 {
	return o.Heatmap.At(int(j), c.Row, c.Col)
}

// ForwardDisplacement is the parent→child vector of edge index e at c.
func (o *Output) ForwardDisplacement(e int, c Cell) r2.Vec {
	return displacement(o.Forward, e, c)
}

// BackwardDisplacement is the child→parent vector of edge index e at c.
func (o *Output) BackwardDisplacement(e int, c Cell) r2.Vec {
	return displacement(o.Backward, e, c)
}

func displacement(t Tensor3, e int, c Cell) r2.Vec {
	return r2.Vec{
		X: t.At(e+skeleton.NumEdges, c.Row, c.Col),
		Y: t.At(e, c.Row, c.Col),
	}
}
