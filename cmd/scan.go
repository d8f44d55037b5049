package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andresmejia3/posekit/internal/decoder"
	"github.com/andresmejia3/posekit/internal/pipeline"
	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/tensor"
	"github.com/andresmejia3/posekit/internal/tensorio"
	"github.com/andresmejia3/posekit/internal/types"
	"github.com/andresmejia3/posekit/internal/utils"
	"github.com/andresmejia3/posekit/internal/worker"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var scanOpts Options

var scanCmd = &cobra.Command{
	Use:   "scan [image ...]",
	Short: "Decode every frame of a tensor stream, or of images run through a model worker",
	Long: `Decodes poses for many frames with parallel engines.

Stream mode (-i) reads length-prefixed tensor bundles from a file ("-" for stdin).
Worker mode (--worker-cmd) starts one model runner per engine and feeds it the
given image files; the runner answers with tensor bundles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runScan(cmd, scanOpts, args)
	},
}

func init() {
	addDecoderFlags(scanCmd.Flags(), &scanOpts)
	scanCmd.Flags().StringVarP(&scanOpts.InputPath, "input", "i", "", "Path to a framed tensor stream (\"-\" for stdin)")
	scanCmd.Flags().IntVarP(&scanOpts.NumEngines, "engines", "e", 1, "Number of parallel decode engines")
	scanCmd.Flags().BoolVar(&scanOpts.JSON, "json", false, "Print one JSON line per frame")
	scanCmd.Flags().BoolVarP(&scanOpts.Save, "save", "s", false, "Persist decoded poses to the database")
	scanCmd.Flags().StringVar(&scanOpts.WorkerCmd, "worker-cmd", "", "Model runner executable that turns images into tensor bundles")
	scanCmd.Flags().StringArrayVar(&scanOpts.WorkerArgs, "worker-arg", nil, "Argument passed to the model runner (repeatable)")
	scanCmd.Flags().StringVar(&scanOpts.WorkerTimeout, "worker-timeout", "30s", "Timeout for a worker to process a single frame")
	rootCmd.AddCommand(scanCmd)
}

type scanStats struct {
	frames int
	failed int
	poses  int
}

// runScan orchestrates the scanning process: frame source, engine pool, ordered output, and persistence.
func runScan(cmd *cobra.Command, opts Options, images []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := validateScanFlags(&opts, images); err != nil {
		return err
	}

	dec, err := resolveDecoder(cmd, opts)
	if err != nil {
		return reportError("Configuration Error", err)
	}

	var imageSize *tensor.Size
	if opts.ImageSize != "" {
		size, err := parseSize(opts.ImageSize)
		if err != nil {
			return reportError("Invalid image size", err)
		}
		imageSize = &size
	}

	// 1. Optional persistence
	var runID uuid.UUID
	if opts.Save {
		db, err := openDB(ctx)
		if err != nil {
			return reportError("Database unavailable", err)
		}
		source, sourceID := scanSource(opts)
		if runID, err = db.CreateRun(ctx, source, sourceID, string(dec.Mode), dec.Config); err != nil {
			return reportError("Failed to register decode run", err)
		}
		fmt.Fprintf(os.Stderr, "📼 Decode run: %s\n", runID)
	}

	// 2. Frame source & engine factory
	tasks := make(chan types.FrameTask, opts.NumEngines)
	srcErr := make(chan error, 1)
	total := -1
	var factory pipeline.Factory

	if opts.WorkerCmd != "" {
		total = len(images)
		timeout, _ := time.ParseDuration(opts.WorkerTimeout)
		wcfg := worker.Config{Command: opts.WorkerCmd, Args: opts.WorkerArgs, ReadTimeout: timeout, Logger: logger}
		factory = func(ctx context.Context, id int) (pipeline.Processor, error) {
			w, err := worker.NewInferenceWorker(ctx, id, wcfg)
			if err != nil {
				return nil, err
			}
			return &workerProcessor{w: w, dec: dec, imageSize: imageSize}, nil
		}
		go func() { srcErr <- feedImages(ctx, images, tasks) }()
	} else {
		in, closeIn, err := openStream(opts.InputPath)
		if err != nil {
			return reportError("Failed to open tensor stream", err)
		}
		defer closeIn()
		bundleProc := pipeline.ProcessorFunc(func(_ context.Context, task types.FrameTask) ([]pose.Pose, error) {
			out, err := tensorio.Decode(bytes.NewReader(task.Data))
			if err != nil {
				return nil, err
			}
			return decodeFrame(dec, out, imageSize), nil
		})
		factory = func(context.Context, int) (pipeline.Processor, error) { return bundleProc, nil }
		go func() { srcErr <- feedStream(ctx, in, tasks) }()
	}

	fmt.Fprintf(os.Stderr, "⚙️  Spawning %d Decode Engines (%s mode)...\n", opts.NumEngines, dec.Mode)

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("🔍 Decoding"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)

	// 3. Aggregate in frame order
	start := time.Now()
	stats, err := collect(ctx, pipeline.Run(ctx, tasks, factory, pipeline.Options{Workers: opts.NumEngines, Logger: logger}),
		cmd.OutOrStdout(), opts, runID, bar)
	bar.Finish()
	if err != nil {
		return err
	}
	if err := <-srcErr; err != nil {
		return reportError("Frame source failed", err)
	}

	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "📊 SCAN SUMMARY\n")
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🎞️  Frames Decoded:   %d (%d failed)\n", stats.frames, stats.failed)
	fmt.Fprintf(os.Stderr, "🧍 Poses Found:      %d\n", stats.poses)
	fmt.Fprintf(os.Stderr, "⏱️  Elapsed:          %s\n", utils.FmtDuration(time.Since(start)))
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	return nil
}

// collect drains ordered results, printing and persisting each frame.
func collect(ctx context.Context, results <-chan types.FrameResult, w io.Writer, opts Options, runID uuid.UUID, bar *progressbar.ProgressBar) (scanStats, error) {
	var stats scanStats
	for res := range results {
		stats.frames++
		bar.Add(1)

		if res.Err != nil {
			stats.failed++
			fmt.Fprintf(os.Stderr, "\n⚠️ Frame %d failed: %v\n", res.Index, res.Err)
			continue
		}
		stats.poses += len(res.Poses)

		if err := writePoses(w, res.Index, res.Poses, opts.JSON); err != nil {
			return stats, err
		}
		if opts.Save {
			if err := DB.InsertPoses(ctx, runID, res.Index, res.Poses); err != nil {
				return stats, reportError(fmt.Sprintf("Failed to persist frame %d", res.Index), err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

func decodeFrame(dec *decoder.Decoder, out *tensor.Output, imageSize *tensor.Size) []pose.Pose {
	tr := pose.Identity
	if imageSize != nil {
		tr = pose.NewTransform(*imageSize, out.ModelInputSize)
	}
	return dec.Decode(out, tr)
}

// workerProcessor owns one model runner process.
type workerProcessor struct {
	w         *worker.InferenceWorker
	dec       *decoder.Decoder
	imageSize *tensor.Size
}

func (p *workerProcessor) Process(_ context.Context, task types.FrameTask) ([]pose.Pose, error) {
	out, err := p.w.ProcessFrame(task.Data)
	if err != nil {
		if errors.Is(err, worker.ErrWorkerFailure) {
			return nil, err
		}
		// Protocol-level failures leave the runner unusable; surface its logs.
		utils.ShowError("Model runner crashed", err, p.w.Cmd)
		return nil, err
	}
	return decodeFrame(p.dec, out, p.imageSize), nil
}

func (p *workerProcessor) Close() { p.w.Close() }

func feedStream(ctx context.Context, r io.Reader, tasks chan<- types.FrameTask) error {
	defer close(tasks)
	br := bufio.NewReader(r)
	for index := 0; ; index++ {
		body, err := tensorio.ReadFrame(br)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", index, err)
		}
		select {
		case tasks <- types.FrameTask{Index: index, Data: body}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func feedImages(ctx context.Context, paths []string, tasks chan<- types.FrameTask) error {
	defer close(tasks)
	for index, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		select {
		case tasks <- types.FrameTask{Index: index, Data: data}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func openStream(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func scanSource(opts Options) (source, sourceID string) {
	if opts.WorkerCmd != "" {
		return "worker:" + opts.WorkerCmd, ""
	}
	if opts.InputPath == "-" {
		return "stdin", ""
	}
	id, err := utils.GenerateSourceID(opts.InputPath)
	if err != nil {
		logger.Warn("could not fingerprint input", "path", opts.InputPath, "err", err)
	}
	return opts.InputPath, id
}

// validateScanFlags ensures all CLI arguments are valid before starting heavy processes.
func validateScanFlags(opts *Options, images []string) error {
	if opts.NumEngines < 1 {
		opts.NumEngines = 1
	}

	if opts.WorkerCmd != "" {
		if opts.InputPath != "" {
			err := fmt.Errorf("--input and --worker-cmd are mutually exclusive")
			return reportError("Configuration Error", err)
		}
		if len(images) == 0 {
			err := fmt.Errorf("worker mode needs at least one image path")
			return reportError("Configuration Error", err)
		}
		if _, err := time.ParseDuration(opts.WorkerTimeout); err != nil {
			return reportError("Invalid worker-timeout format (use '30s', '1m')", err)
		}
		for _, path := range images {
			if err := checkFile(path, "image"); err != nil {
				return err
			}
		}
		return nil
	}

	if opts.InputPath == "" {
		err := fmt.Errorf("either --input or --worker-cmd is required")
		return reportError("Configuration Error", err)
	}
	if len(images) > 0 {
		err := fmt.Errorf("image arguments are only used with --worker-cmd")
		return reportError("Configuration Error", err)
	}
	if opts.InputPath == "-" {
		return nil
	}
	return checkFile(opts.InputPath, "tensor stream")
}

func checkFile(path, kind string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reportError("Input file does not exist", err)
		}
		return reportError("Unable to access input file", err)
	}
	if info.IsDir() {
		err := fmt.Errorf("%s is a directory, expected a %s file", path, kind)
		return reportError("Input path is a directory", err)
	}
	return nil
}
