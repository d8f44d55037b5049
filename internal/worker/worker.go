package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/andresmejia3/posekit/internal/tensor"
	"github.com/andresmejia3/posekit/internal/tensorio"
	"github.com/andresmejia3/posekit/internal/utils" // Using the SafeCommand wrapper
)

// ErrWorkerFailure is returned when the model runner reports an error for a frame.
var ErrWorkerFailure = errors.New("inference worker error")

const (
	statusOK    byte = 0
	statusError byte = 1
)

// Config controls how an inference worker is launched.
type Config struct {
	Command     string        // Executable of the model runner
	Args        []string      // Arguments passed to the runner
	ReadTimeout time.Duration // Max wait for one frame's tensors; 0 = no limit
	Logger      *slog.Logger
}

// InferenceWorker drives an external model runner that turns image bytes into
// PoseNet output tensors.
//
// Protocol: Go writes [u32 length][image] on the runner's stdin. The runner
// answers on FD 3 with [u32 length][status byte][body]. Status 0 carries a
// tensor bundle; status 1 carries [u32 length][message].
type InferenceWorker struct {
	ID          int
	Cmd         *utils.SafeCommand
	Stdin       io.WriteCloser
	DataPipe    io.ReadCloser
	ReadTimeout time.Duration
	log         *slog.Logger
}

// NewInferenceWorker starts the model runner. The process is killed when ctx is cancelled.
func NewInferenceWorker(ctx context.Context, id int, cfg Config) (*InferenceWorker, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("worker %d: no model runner command configured", id)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cmd := utils.NewSafeCommand(ctx, cfg.Command, cfg.Args...)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	cmd.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	logger.Debug("inference worker started", "worker", id, "pid", cmd.Process.Pid, "command", cfg.Command)

	return &InferenceWorker{
		ID:          id,
		Cmd:         cmd,
		Stdin:       stdin,
		DataPipe:    r,
		ReadTimeout: cfg.ReadTimeout,
		log:         logger,
	}, nil
}

// ProcessFrame sends one image to the runner and decodes the tensors it returns.
func (w *InferenceWorker) ProcessFrame(data []byte) (*tensor.Output, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	if w.ReadTimeout > 0 {
		if d, ok := w.DataPipe.(interface{ SetReadDeadline(time.Time) error }); ok {
			if err := d.SetReadDeadline(time.Now().Add(w.ReadTimeout)); err != nil {
				return nil, fmt.Errorf("failed to set read deadline: %w", err)
			}
		}
	}

	// This is where we catch a runner that crashed on startup
	body, err := tensorio.ReadFrame(w.DataPipe)
	if err != nil {
		return nil, fmt.Errorf("worker %d: reading response: %w", w.ID, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("worker %d: empty response", w.ID)
	}

	payload := bytes.NewReader(body[1:])
	switch body[0] {
	case statusOK:
		out, err := tensorio.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("worker %d: malformed tensors: %w", w.ID, err)
		}
		return out, nil
	case statusError:
		var msgLen uint32
		if err := binary.Read(payload, binary.BigEndian, &msgLen); err != nil {
			return nil, fmt.Errorf("worker %d: malformed error response: %w", w.ID, err)
		}
		msg := make([]byte, msgLen)
		if _, err := io.ReadFull(payload, msg); err != nil {
			return nil, fmt.Errorf("worker %d: malformed error response: %w", w.ID, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrWorkerFailure, msg)
	default:
		return nil, fmt.Errorf("worker %d: unknown response status %d", w.ID, body[0])
	}
}

// Close shuts the runner's stdin and waits for it to exit.
func (w *InferenceWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		if err := w.Cmd.Wait(); err != nil {
			w.log.Debug("inference worker exited", "worker", w.ID, "err", err)
		}
	}
}
