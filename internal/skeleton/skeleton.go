// Package skeleton holds the static 17-joint body graph the pose decoders walk.
package skeleton

import "fmt"

// Joint identifies one of the 17 anatomical landmarks. Its value is also the
// heatmap/offset channel index for that landmark.
type Joint int

const (
	Nose Joint = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// NumJoints is the number of heatmap channels the model emits.
const NumJoints = 17

var jointNames = [NumJoints]string{
	"nose",
	"leftEye",
	"rightEye",
	"leftEar",
	"rightEar",
	"leftShoulder",
	"rightShoulder",
	"leftElbow",
	"rightElbow",
	"leftWrist",
	"rightWrist",
	"leftHip",
	"rightHip",
	"leftKnee",
	"rightKnee",
	"leftAnkle",
	"rightAnkle",
}

func (j Joint) String() string {
	if j < 0 || int(j) >= NumJoints {
		return fmt.Sprintf("Joint(%d)", int(j))
	}
	return jointNames[j]
}

// Joints returns every joint in channel order.
func Joints() [NumJoints]Joint {
	var all [NumJoints]Joint
	for i := range all {
		all[i] = Joint(i)
	}
	return all
}

// ParseJoint maps a camelCase joint name back to its Joint.
func ParseJoint(name string) (Joint, error) {
	for i, n := range jointNames {
		if n == name {
			return Joint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", name)
}
