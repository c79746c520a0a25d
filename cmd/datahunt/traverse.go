package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newTraverseCmd(root *rootOptions) *cobra.Command {
	var start, query string
	cmd := &cobra.Command{
		Use:   "traverse",
		Short: "Walk from a single start page toward a data file and download it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if start == "" || query == "" {
				return errors.New("--start and --query are required")
			}
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

			report, err := a.agent.Traverse(ctx, start, query, cfg.Traversal.MaxDepth)
			renderReport(cmd.OutOrStdout(), report)
			if err != nil {
				return err
			}
			if !report.Found() {
				return errNotFound
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start page URL")
	cmd.Flags().StringVar(&query, "query", "", "What data to look for")
	return cmd
}
