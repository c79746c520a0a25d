package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newHuntCmd(root *rootOptions) *cobra.Command {
	var (
		batch       bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "hunt <query...>",
		Short: "Plan a search, traverse candidate pages and download the first data file found",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			logger := buildLogger(cfg.Logging, nil)
			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if !batch {
				report, err := a.agent.Hunt(ctx, strings.Join(args, " "), cfg.Traversal.MaxDepth)
				renderReport(out, report)
				if err != nil {
					return err
				}
				if !report.Found() {
					return errNotFound
				}
				return nil
			}

			results, err := a.agent.HuntBatch(ctx, args, cfg.Traversal.MaxDepth, concurrency)
			missing := 0
			for _, res := range results {
				renderReport(out, res.Report)
				if res.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "hunt %q failed: %v\n", res.Query, res.Err)
				}
				if !res.Report.Found() {
					missing++
				}
			}
			if err != nil {
				return err
			}
			if missing > 0 {
				return fmt.Errorf("%d of %d hunts found no file", missing, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "Treat each argument as a separate query and hunt them concurrently")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Concurrent hunts in batch mode")
	return cmd
}

var errNotFound = errors.New("no data file found")
