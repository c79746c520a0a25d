package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"datahunt/internal/config"
)

type rootOptions struct {
	configPath string
	maxDepth   int
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "datahunt",
		Short:         "datahunt finds and downloads data files by following links an LLM picks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "configs/config.yaml", "Path to configuration file (optional)")
	flags.IntVar(&opts.maxDepth, "max-depth", 0, "Override traversal.max_depth")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading secrets")

	cmd.AddCommand(
		newHuntCmd(opts),
		newTraverseCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// load reads dotenv files and configuration, applying flag overrides.
func (o *rootOptions) load() (*config.Config, error) {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOptional(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.maxDepth < 0 {
		return nil, fmt.Errorf("--max-depth must not be negative")
	}
	if o.maxDepth > 0 {
		cfg.Traversal.MaxDepth = o.maxDepth
	}
	return cfg, nil
}

func buildLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Structured {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
