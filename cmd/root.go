package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/andresmejia3/posekit/internal/config"
	"github.com/andresmejia3/posekit/internal/store"
	"github.com/andresmejia3/posekit/internal/utils"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for decode and scan commands
type Options struct {
	InputPath     string
	Mode          string
	ImageSize     string
	NumEngines    int
	JSON          bool
	Save          bool
	WorkerCmd     string
	WorkerArgs    []string
	WorkerTimeout string
	Decoder       config.Config
}

var (
	// DB is the database connection, opened only by subcommands that persist or read poses
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// configPath points at an optional JSON tuning file
	configPath string
	logLevel   string
	logger     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "posekit",
	Short:   "PoseNet output decoder: tensors in, body poses out",
	Version: Version, // This enables the --version flag

	// Errors are printed once by Execute, or already boxed by reportError.
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevel)
		if err != nil {
			return err
		}
		logger = NewLogger(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
			DB = nil
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !alreadyReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// reportedError marks an error whose ShowError box has already been printed.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }

// reportError prints the boxed report for err and returns it marked as reported.
func reportError(context string, err error) error {
	utils.ShowError(context, err, nil)
	return reportedError{err}
}

func alreadyReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/posekit)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON file with decoder tunables; explicit flags override it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Diagnostic log level: debug, info, warn, error")
}

// NewLogger returns a structured slog.Logger writing to stderr at the given level.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid --log-level %q: %w", s, err)
	}
	return level, nil
}

// openDB connects on first use. If no flag was provided, the connection string
// is built from the POSTGRES_* environment.
func openDB(ctx context.Context) (*store.Store, error) {
	if DB != nil {
		return DB, nil
	}
	if dbURL == "" {
		if host := os.Getenv("POSTGRES_HOST"); host != "" {
			user := os.Getenv("POSTGRES_USER")
			pass := os.Getenv("POSTGRES_PASSWORD")
			name := os.Getenv("POSTGRES_DB")
			port := os.Getenv("POSTGRES_PORT")
			if port == "" {
				port = "5432"
			}
			dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
		} else {
			// Fallback to local default if no env vars are present
			dbURL = "postgres://localhost:5432/posekit"
		}
	}

	var err error
	DB, err = store.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return DB, nil
}
