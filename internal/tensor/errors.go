package tensor

import "errors"

// ErrShapeMismatch is returned when a tensor's shape does not match the
// 17-joint / 16-edge model layout.
var ErrShapeMismatch = errors.New("tensor shape does not match model layout")
