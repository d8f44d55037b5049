package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.1, cfg.JointConfidenceThreshold)
	assert.Equal(t, 0.5, cfg.PoseConfidenceThreshold)
	assert.Equal(t, 40.0, cfg.MatchingJointDistance)
	assert.Equal(t, 3, cfg.LocalSearchRadius)
	assert.Equal(t, 15, cfg.MaxPoseCount)
	assert.Equal(t, 3, cfg.AdjacentJointOffsetRefinementSteps)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPartialOverride(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{"max_pose_count": 2, "pose_confidence_threshold": 0.25}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.MaxPoseCount = 2
	want.PoseConfidenceThreshold = 0.25
	assert.Equal(t, want, cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"wrong extension", "tuning.yaml", `{}`},
		{"malformed json", "tuning.json", `{"max_pose_count": }`},
		{"negative radius", "tuning.json", `{"local_search_radius": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.MatchingJointDistance = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.AdjacentJointOffsetRefinementSteps = -2
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	// Thresholds above 1 are legal; they simply reject everything.
	cfg = Default()
	cfg.PoseConfidenceThreshold = 1.1
	assert.NoError(t, cfg.Validate())
}
