// Package tensor provides the read-only view over PoseNet output tensors and
// the mapping between grid cells and model-space positions.
package tensor

import "fmt"

// Tensor3 is a dense channel-major [channel][row][col] tensor.
type Tensor3 struct {
	Channels int
	Rows     int
	Cols     int
	Data     []float32
}

// NewTensor3 allocates a zeroed tensor of the given shape.
func NewTensor3(channels, rows, cols int) Tensor3 {
	return Tensor3{
		Channels: channels,
		Rows:     rows,
		Cols:     cols,
		Data:     make([]float32, channels*rows*cols),
	}
}

func (t Tensor3) index(c, r, col int) int {
	if c < 0 || c >= t.Channels || r < 0 || r >= t.Rows || col < 0 || col >= t.Cols {
		panic(fmt.Sprintf("tensor: index [%d][%d][%d] out of range for shape [%d][%d][%d]",
			c, r, col, t.Channels, t.Rows, t.Cols))
	}
	return (c*t.Rows+r)*t.Cols + col
}

// At reads one element. Indices outside the shape panic: shapes are fixed by
// the model contract, so a bad index is a programming error.
func (t Tensor3) At(c, r, col int) float64 {
	return float64(t.Data[t.index(c, r, col)])
}

// Set writes one element.
func (t Tensor3) Set(c, r, col int, v float64) {
	t.Data[t.index(c, r, col)] = float32(v)
}

// Shape reports whether the tensor has exactly the given dimensions.
func (t Tensor3) Shape(channels, rows, cols int) bool {
	return t.Channels == channels && t.Rows == rows && t.Cols == cols &&
		len(t.Data) == channels*rows*cols
}
