package cmd

import (
	"fmt"

	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the poses stored for a decode run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		runID, err := uuid.Parse(args[0])
		if err != nil {
			return reportError("Invalid run ID", err)
		}

		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return reportError("Database unavailable", err)
		}
		stored, err := db.GetRunPoses(ctx, runID)
		if err != nil {
			return reportError("Failed to load poses", err)
		}
		if len(stored) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s has no stored poses.\n", runID)
			return nil
		}

		for _, frame := range groupByFrame(stored) {
			if err := writePoses(cmd.OutOrStdout(), frame.index, frame.poses, showJSON); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print one JSON line per frame")
	rootCmd.AddCommand(showCmd)
}

type storedFrame struct {
	index int
	poses []pose.Pose
}

// groupByFrame relies on GetRunPoses ordering rows by frame index.
func groupByFrame(stored []store.StoredPose) []storedFrame {
	var frames []storedFrame
	for _, sp := range stored {
		if n := len(frames); n == 0 || frames[n-1].index != sp.FrameIndex {
			frames = append(frames, storedFrame{index: sp.FrameIndex})
		}
		last := &frames[len(frames)-1]
		last.poses = append(last.poses, sp.Pose)
	}
	return frames
}
