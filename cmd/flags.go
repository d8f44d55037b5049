package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andresmejia3/posekit/internal/config"
	"github.com/andresmejia3/posekit/internal/decoder"
	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/tensor"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag names for the decoder tunables; shared by decode and scan.
const (
	flagJointThreshold = "joint-threshold"
	flagPoseThreshold  = "pose-threshold"
	flagMatchDistance  = "match-distance"
	flagSearchRadius   = "search-radius"
	flagMaxPoses       = "max-poses"
	flagRefineSteps    = "refine-steps"
)

// addDecoderFlags binds the six decoder tunables plus mode and image size.
func addDecoderFlags(fs *pflag.FlagSet, opts *Options) {
	def := config.Default()
	fs.StringVarP(&opts.Mode, "mode", "m", string(decoder.ModeMulti), "Decoding strategy: single, multi")
	fs.StringVar(&opts.ImageSize, "image-size", "", "Source image size WxH for scaling joint positions (default: model input size)")
	fs.Float64Var(&opts.Decoder.JointConfidenceThreshold, flagJointThreshold, def.JointConfidenceThreshold, "Min joint confidence to mark a joint valid")
	fs.Float64Var(&opts.Decoder.PoseConfidenceThreshold, flagPoseThreshold, def.PoseConfidenceThreshold, "Min aggregate confidence to accept a pose")
	fs.Float64Var(&opts.Decoder.MatchingJointDistance, flagMatchDistance, def.MatchingJointDistance, "Pixel distance under which same-named joints are treated as the same")
	fs.IntVar(&opts.Decoder.LocalSearchRadius, flagSearchRadius, def.LocalSearchRadius, "Half-width in cells of the root local-maximum window")
	fs.IntVar(&opts.Decoder.MaxPoseCount, flagMaxPoses, def.MaxPoseCount, "Max poses returned in multi mode")
	fs.IntVar(&opts.Decoder.AdjacentJointOffsetRefinementSteps, flagRefineSteps, def.AdjacentJointOffsetRefinementSteps, "Offset refinement iterations per assembled joint")
}

// resolveDecoder layers defaults, the --config file, and explicitly set flags,
// in that order, and builds the decoder.
func resolveDecoder(cmd *cobra.Command, opts Options) (*decoder.Decoder, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}

	fs := cmd.Flags()
	if fs.Changed(flagJointThreshold) {
		cfg.JointConfidenceThreshold = opts.Decoder.JointConfidenceThreshold
	}
	if fs.Changed(flagPoseThreshold) {
		cfg.PoseConfidenceThreshold = opts.Decoder.PoseConfidenceThreshold
	}
	if fs.Changed(flagMatchDistance) {
		cfg.MatchingJointDistance = opts.Decoder.MatchingJointDistance
	}
	if fs.Changed(flagSearchRadius) {
		cfg.LocalSearchRadius = opts.Decoder.LocalSearchRadius
	}
	if fs.Changed(flagMaxPoses) {
		cfg.MaxPoseCount = opts.Decoder.MaxPoseCount
	}
	if fs.Changed(flagRefineSteps) {
		cfg.AdjacentJointOffsetRefinementSteps = opts.Decoder.AdjacentJointOffsetRefinementSteps
	}

	mode, err := decoder.ParseMode(opts.Mode)
	if err != nil {
		return nil, err
	}
	return decoder.New(mode, cfg)
}

// parseSize reads "WxH".
func parseSize(s string) (tensor.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return tensor.Size{}, fmt.Errorf("invalid size %q, want WxH", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return tensor.Size{}, fmt.Errorf("invalid width in %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return tensor.Size{}, fmt.Errorf("invalid height in %q", s)
	}
	return tensor.Size{Width: width, Height: height}, nil
}

// transformFor maps model space onto the requested image size, or leaves
// positions in model space when none was given.
func transformFor(imageSize string, out *tensor.Output) (pose.Transform, error) {
	if imageSize == "" {
		return pose.Identity, nil
	}
	size, err := parseSize(imageSize)
	if err != nil {
		return pose.Identity, err
	}
	return pose.NewTransform(size, out.ModelInputSize), nil
}
