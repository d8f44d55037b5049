// Package tensorio reads and writes PoseNet output bundles: the four output
// tensors plus their geometry, in a big-endian binary layout.
//
// Bundle layout:
//
//	[4]byte  magic "PNT1"
//	uint32   model input width, height
//	uint32   output stride
//	uint32   joint count, edge count
//	uint32   grid height, width
//	float32  heatmap, offsets, forward, backward (channel-major)
//
// Streams carry bundles as [uint32 length][bundle] frames.
package tensorio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/posekit/internal/skeleton"
	"github.com/andresmejia3/posekit/internal/tensor"
)

var magic = [4]byte{'P', 'N', 'T', '1'}

var (
	// ErrBadMagic is returned when a bundle does not start with the PNT1 marker.
	ErrBadMagic = errors.New("not a tensor bundle")

	// ErrFrameTooLarge is returned when a stream frame header, or a bundle's
	// grid, exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("tensor frame too large")
)

// MaxFrameSize bounds a single framed bundle (a 513x513/stride 8 bundle is ~1.9MB).
const MaxFrameSize = 64 * 1024 * 1024

// bundleChannels is the float32 channel count across all four tensors.
const bundleChannels = 3*skeleton.NumJoints + 4*skeleton.NumEdges

type header struct {
	Magic       [4]byte
	ModelWidth  uint32
	ModelHeight uint32
	Stride      uint32
	Joints      uint32
	Edges       uint32
	Height      uint32
	Width       uint32
}

// Encode writes out as a single bundle.
func Encode(w io.Writer, out *tensor.Output) error {
	h := header{
		Magic:       magic,
		ModelWidth:  uint32(out.ModelInputSize.Width),
		ModelHeight: uint32(out.ModelInputSize.Height),
		Stride:      uint32(out.OutputStride),
		Joints:      skeleton.NumJoints,
		Edges:       skeleton.NumEdges,
		Height:      uint32(out.Height()),
		Width:       uint32(out.Width()),
	}
	if err := binary.Write(w, binary.BigEndian, h); err != nil {
		return fmt.Errorf("failed to write bundle header: %w", err)
	}
	for _, t := range []tensor.Tensor3{out.Heatmap, out.Offsets, out.Forward, out.Backward} {
		if err := binary.Write(w, binary.BigEndian, t.Data); err != nil {
			return fmt.Errorf("failed to write tensor data: %w", err)
		}
	}
	return nil
}

// Decode reads one bundle and validates its layout.
func Decode(r io.Reader) (*tensor.Output, error) {
	var h header
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to read bundle header: %w", err)
	}
	if h.Magic != magic {
		return nil, ErrBadMagic
	}
	if h.Joints != skeleton.NumJoints || h.Edges != skeleton.NumEdges {
		return nil, fmt.Errorf("%w: bundle has %d joints and %d edges, want %d and %d",
			tensor.ErrShapeMismatch, h.Joints, h.Edges, skeleton.NumJoints, skeleton.NumEdges)
	}
	if h.Height == 0 || h.Width == 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", tensor.ErrShapeMismatch, h.Height, h.Width)
	}
	// Bound the whole payload before allocating any tensor.
	if payload := uint64(h.Height) * uint64(h.Width) * bundleChannels * 4; payload > MaxFrameSize {
		return nil, fmt.Errorf("%w: grid %dx%d needs %d bytes of tensor data", ErrFrameTooLarge, h.Height, h.Width, payload)
	}
	rows, cols := int(h.Height), int(h.Width)

	read := func(channels int) (tensor.Tensor3, error) {
		t := tensor.NewTensor3(channels, rows, cols)
		if err := binary.Read(r, binary.BigEndian, t.Data); err != nil {
			return t, fmt.Errorf("failed to read tensor data: %w", err)
		}
		return t, nil
	}

	heatmap, err := read(skeleton.NumJoints)
	if err != nil {
		return nil, err
	}
	offsets, err := read(2 * skeleton.NumJoints)
	if err != nil {
		return nil, err
	}
	forward, err := read(2 * skeleton.NumEdges)
	if err != nil {
		return nil, err
	}
	backward, err := read(2 * skeleton.NumEdges)
	if err != nil {
		return nil, err
	}

	size := tensor.Size{Width: int(h.ModelWidth), Height: int(h.ModelHeight)}
	return tensor.NewOutput(heatmap, offsets, forward, backward, size, int(h.Stride))
}

// ReadFile decodes a single bundle file.
func ReadFile(path string) (*tensor.Output, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// WriteFile encodes out to path, replacing any existing file.
func WriteFile(path string, out *tensor.Output) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := Encode(bw, out); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteFrame writes out as one length-prefixed stream frame.
func WriteFrame(w io.Writer, out *tensor.Output) error {
	var buf bytes.Buffer
	if err := Encode(&buf, out); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(buf.Len())); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadFrame reads the next raw frame body. It returns io.EOF cleanly at the end
// of the stream.
func ReadFrame(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("truncated frame: %w", err)
	}
	return body, nil
}
