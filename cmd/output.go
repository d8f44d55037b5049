package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/types"
)

// frameJSON is one line of --json output.
type frameJSON struct {
	Frame int                `json:"frame"`
	Poses []types.PoseResult `json:"poses"`
}

// writePoses prints the poses of one frame as a JSON line or a table.
func writePoses(w io.Writer, frame int, poses []pose.Pose, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(frameJSON{Frame: frame, Poses: types.FromPoses(poses)})
	}

	if len(poses) == 0 {
		fmt.Fprintf(w, "Frame %d: no poses detected.\n", frame)
		return nil
	}

	for i, p := range poses {
		fmt.Fprintf(w, "\n🧍 Frame %d, Pose %d  confidence %.3f  (%d/%d joints valid)\n",
			frame, i, p.Confidence, p.ValidCount(), len(p.Joints))

		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		fmt.Fprintln(tw, "JOINT\tX\tY\tCELL\tCONFIDENCE\tVALID")
		fmt.Fprintln(tw, "-----\t-\t-\t----\t----------\t-----")
		for _, j := range p.Joints {
			valid := ""
			if j.IsValid {
				valid = "✓"
			}
			fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t(%d,%d)\t%.3f\t%s\n",
				j.Name, j.Position.X, j.Position.Y, j.Cell.Row, j.Cell.Col, j.Confidence, valid)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
