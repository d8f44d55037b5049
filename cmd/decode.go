package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/posekit/internal/tensorio"
	"github.com/andresmejia3/posekit/internal/utils"
	"github.com/spf13/cobra"
)

var decodeOpts Options

var decodeCmd = &cobra.Command{
	Use:   "decode <bundle>",
	Short: "Decode poses from a single tensor bundle file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		decodeOpts.InputPath = args[0]
		return runDecode(cmd, decodeOpts)
	},
}

func init() {
	addDecoderFlags(decodeCmd.Flags(), &decodeOpts)
	decodeCmd.Flags().BoolVar(&decodeOpts.JSON, "json", false, "Print poses as JSON")
	decodeCmd.Flags().BoolVarP(&decodeOpts.Save, "save", "s", false, "Persist the decoded poses to the database")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, opts Options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dec, err := resolveDecoder(cmd, opts)
	if err != nil {
		return reportError("Configuration Error", err)
	}

	out, err := tensorio.ReadFile(opts.InputPath)
	if err != nil {
		return reportError("Failed to read tensor bundle", err)
	}
	logger.Debug("bundle loaded", "path", opts.InputPath,
		"grid", fmt.Sprintf("%dx%d", out.Height(), out.Width()),
		"model_input", out.ModelInputSize.String(), "stride", out.OutputStride)

	tr, err := transformFor(opts.ImageSize, out)
	if err != nil {
		return reportError("Invalid image size", err)
	}

	poses := dec.Decode(out, tr)

	if err := writePoses(cmd.OutOrStdout(), 0, poses, opts.JSON); err != nil {
		return err
	}

	if !opts.Save {
		return nil
	}

	db, err := openDB(ctx)
	if err != nil {
		return reportError("Database unavailable", err)
	}
	sourceID, err := utils.GenerateSourceID(opts.InputPath)
	if err != nil {
		return reportError("Failed to fingerprint input", err)
	}
	runID, err := db.CreateRun(ctx, opts.InputPath, sourceID, string(dec.Mode), dec.Config)
	if err != nil {
		return reportError("Failed to register decode run", err)
	}
	if err := db.InsertPoses(ctx, runID, 0, poses); err != nil {
		return reportError("Failed to persist poses", err)
	}
	fmt.Fprintf(os.Stderr, "💾 Saved %d pose(s) as run %s\n", len(poses), runID)
	return nil
}
