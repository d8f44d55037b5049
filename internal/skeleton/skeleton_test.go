package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeTable(t *testing.T) {
	all := Edges()
	for i, e := range all {
		assert.Equal(t, i, e.Index, "edge %d has wrong index", i)
		assert.NotEqual(t, e.Parent, e.Child)
	}
}

func TestGraphIsConnectedTree(t *testing.T) {
	// 17 nodes and 16 edges: connected implies acyclic.
	seen := map[Joint]bool{Nose: true}
	queue := []Joint{Nose}
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		for _, e := range EdgesOf(j) {
			next, _ := e.Other(j)
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	assert.Len(t, seen, NumJoints)
}

func TestAdjacencyDegrees(t *testing.T) {
	tests := []struct {
		joint Joint
		want  int
	}{
		{Nose, 4},
		{LeftShoulder, 3},
		{RightHip, 2},
		{LeftAnkle, 1},
		{RightEar, 1},
	}
	for _, tt := range tests {
		t.Run(tt.joint.String(), func(t *testing.T) {
			assert.Len(t, EdgesOf(tt.joint), tt.want)
		})
	}
}

func TestEdgeOther(t *testing.T) {
	e := Edges()[5] // leftShoulder -> leftElbow
	target, forward := e.Other(LeftShoulder)
	assert.Equal(t, LeftElbow, target)
	assert.True(t, forward)

	target, forward = e.Other(LeftElbow)
	assert.Equal(t, LeftShoulder, target)
	assert.False(t, forward)
}

func TestParseJoint(t *testing.T) {
	for _, j := range Joints() {
		got, err := ParseJoint(j.String())
		require.NoError(t, err)
		assert.Equal(t, j, got)
	}

	_, err := ParseJoint("tail")
	assert.Error(t, err)
	assert.Equal(t, "Joint(42)", Joint(42).String())
}
