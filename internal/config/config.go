// Package config holds the decoder tunables and their JSON file loader.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// ErrInvalidConfig is returned by Validate for out-of-range tunables.
var ErrInvalidConfig = errors.New("invalid decoder configuration")

// Config controls both decoding modes. It is passed by value so each decode
// works on its own copy.
type Config struct {
	JointConfidenceThreshold           float64 `json:"joint_confidence_threshold"`             // Min heatmap score for a joint to be valid
	PoseConfidenceThreshold            float64 `json:"pose_confidence_threshold"`              // Min aggregate score to accept a pose
	MatchingJointDistance              float64 `json:"matching_joint_distance"`                // Pixels within which same-named joints coincide
	LocalSearchRadius                  int     `json:"local_search_radius"`                    // Half-width (cells) of the root local-maximum window
	MaxPoseCount                       int     `json:"max_pose_count"`                         // Upper bound on poses returned by multi-pose decode
	AdjacentJointOffsetRefinementSteps int     `json:"adjacent_joint_offset_refinement_steps"` // Offset refinement passes per assembled joint
}

// Default returns the reference tunables.
func Default() Config {
	return Config{
		JointConfidenceThreshold:           0.1,
		PoseConfidenceThreshold:            0.5,
		MatchingJointDistance:              40.0,
		LocalSearchRadius:                  3,
		MaxPoseCount:                       15,
		AdjacentJointOffsetRefinementSteps: 3,
	}
}

// Validate rejects values the decoders cannot run with.
func (c Config) Validate() error {
	switch {
	case !finite(c.JointConfidenceThreshold):
		return fmt.Errorf("%w: joint confidence threshold %v", ErrInvalidConfig, c.JointConfidenceThreshold)
	case !finite(c.PoseConfidenceThreshold):
		return fmt.Errorf("%w: pose confidence threshold %v", ErrInvalidConfig, c.PoseConfidenceThreshold)
	case !finite(c.MatchingJointDistance) || c.MatchingJointDistance < 0:
		return fmt.Errorf("%w: matching joint distance must be >= 0, got %v", ErrInvalidConfig, c.MatchingJointDistance)
	case c.LocalSearchRadius < 0:
		return fmt.Errorf("%w: local search radius must be >= 0, got %d", ErrInvalidConfig, c.LocalSearchRadius)
	case c.MaxPoseCount < 0:
		return fmt.Errorf("%w: max pose count must be >= 0, got %d", ErrInvalidConfig, c.MaxPoseCount)
	case c.AdjacentJointOffsetRefinementSteps < 0:
		return fmt.Errorf("%w: refinement steps must be >= 0, got %d", ErrInvalidConfig, c.AdjacentJointOffsetRefinementSteps)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// fileConfig mirrors Config with optional fields so partial files only
// override what they mention.
type fileConfig struct {
	JointConfidenceThreshold           *float64 `json:"joint_confidence_threshold,omitempty"`
	PoseConfidenceThreshold            *float64 `json:"pose_confidence_threshold,omitempty"`
	MatchingJointDistance              *float64 `json:"matching_joint_distance,omitempty"`
	LocalSearchRadius                  *int     `json:"local_search_radius,omitempty"`
	MaxPoseCount                       *int     `json:"max_pose_count,omitempty"`
	AdjacentJointOffsetRefinementSteps *int     `json:"adjacent_joint_offset_refinement_steps,omitempty"`
}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Load reads a JSON config file on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	fc.applyTo(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (fc fileConfig) applyTo(cfg *Config) {
	if fc.JointConfidenceThreshold != nil {
		cfg.JointConfidenceThreshold = *fc.JointConfidenceThreshold
	}
	if fc.PoseConfidenceThreshold != nil {
		cfg.PoseConfidenceThreshold = *fc.PoseConfidenceThreshold
	}
	if fc.MatchingJointDistance != nil {
		cfg.MatchingJointDistance = *fc.MatchingJointDistance
	}
	if fc.LocalSearchRadius != nil {
		cfg.LocalSearchRadius = *fc.LocalSearchRadius
	}
	if fc.MaxPoseCount != nil {
		cfg.MaxPoseCount = *fc.MaxPoseCount
	}
	if fc.AdjacentJointOffsetRefinementSteps != nil {
		cfg.AdjacentJointOffsetRefinementSteps = *fc.AdjacentJointOffsetRefinementSteps
	}
}
