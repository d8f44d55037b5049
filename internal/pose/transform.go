package pose

import (
	"github.com/andresmejia3/posekit/internal/tensor"
	"gonum.org/v1/gonum/spatial/r2"
)

// Transform is an axis-aligned scale from model input space to the source
// image's pixel space. No rotation or translation.
type Transform struct {
	ScaleX float64
	ScaleY float64
}

// Identity leaves positions in model input space.
var Identity = Transform{ScaleX: 1, ScaleY: 1}

// NewTransform scales model coordinates up (or down) to an image of the given size.
func NewTransform(image, model tensor.Size) Transform {
	if model.Width == 0 || model.Height == 0 {
		return Identity
	}
	return Transform{
		ScaleX: float64(image.Width) / float64(model.Width),
		ScaleY: float64(image.Height) / float64(model.Height),
	}
}

// Apply scales p.
func (t Transform) Apply(p r2.Vec) r2.Vec {
	return r2.Vec{X: p.X * t.ScaleX, Y: p.Y * t.ScaleY}
}
