package skeleton

// Edge connects a parent joint to a child joint. Index selects the channel pair
// in the forward/backward displacement tensors.
type Edge struct {
	Parent Joint
	Child  Joint
	Index  int
}

// NumEdges is the number of displacement channel pairs the model emits.
const NumEdges = 16

var edges = [NumEdges]Edge{
	{Nose, LeftEye, 0},
	{LeftEye, LeftEar, 1},
	{Nose, RightEye, 2},
	{RightEye, RightEar, 3},
	{Nose, LeftShoulder, 4},
	{LeftShoulder, LeftElbow, 5},
	{LeftElbow, LeftWrist, 6},
	{LeftShoulder, LeftHip, 7},
	{LeftHip, LeftKnee, 8},
	{LeftKnee, LeftAnkle, 9},
	{Nose, RightShoulder, 10},
	{RightShoulder, RightElbow, 11},
	{RightElbow, RightWrist, 12},
	{RightShoulder, RightHip, 13},
	{RightHip, RightKnee, 14},
	{RightKnee, RightAnkle, 15},
}

// adjacency[j] lists every edge touching joint j, in edge index order.
var adjacency [NumJoints][]Edge

func init() {
	for _, e := range edges {
		adjacency[e.Parent] = append(adjacency[e.Parent], e)
		adjacency[e.Child] = append(adjacency[e.Child], e)
	}
}

// Edges returns a copy of the full edge table.
func Edges() [NumEdges]Edge {
	return edges
}

// EdgesOf returns the edges incident to j. The slice is shared; do not modify it.
func EdgesOf(j Joint) []Edge {
	return adjacency[j]
}

// Other returns the endpoint of e that is not j, and whether travelling from j
// to it follows the parent→child direction.
func (e Edge) Other(j Joint) (target Joint, forward bool) {
	if e.Parent == j {
		return e.Child, true
	}
	return e.Parent, false
}
