package decoder

import (
	"fmt"
	"strings"

	"github.com/andresmejia3/posekit/internal/config"
	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/tensor"
)

// Mode selects the decoding strategy.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// ParseMode accepts "single" or "multi" in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSingle, ModeMulti:
		return m, nil
	}
	return "", fmt.Errorf("unknown decode mode %q (want single or multi)", s)
}

// Decoder pairs a strategy with its tunables. It holds no mutable state and may
// be shared across goroutines decoding different outputs.
type Decoder struct {
	Mode   Mode
	Config config.Config
}

// New validates cfg and returns a Decoder.
func New(mode Mode, cfg config.Config) (*Decoder, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{Mode: mode, Config: cfg}, nil
}

// Decode runs the configured strategy. Single mode always yields exactly one pose.
func (d *Decoder) Decode(out *tensor.Output, tr pose.Transform) []pose.Pose {
	if d.Mode == ModeSingle {
		return []pose.Pose{DecodeSingle(out, d.Config, tr)}
	}
	return DecodeMulti(out, d.Config, tr)
}
