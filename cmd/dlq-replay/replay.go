package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/dlq"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
)

func newReplayCmd(v *viper.Viper) *cobra.Command {
	var (
		limit  int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Republish dead letters to their original topic and remove them from the DLQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(v)
			if err != nil {
				return err
			}
			logger, err := newLogger(opts)
			if err != nil {
				return err
			}
			defer platformlogging.Sync(logger)

			source, publisher, err := open(opts)
			if err != nil {
				return err
			}
			defer source.Close()
			defer publisher.Close()

			logger.Info("replaying dead letters",
				zap.String("queue", opts.Queue),
				zap.String("transport", opts.Transport),
				zap.Int("limit", limit),
				zap.Bool("dry_run", dryRun),
			)
			report, err := dlq.NewReplayer(logger, source, publisher).Replay(cmd.Context(), limit, dryRun)
			fmt.Fprintf(cmd.ErrOrStderr(), "read=%d replayed=%d skipped=%d dry_run=%v\n",
				report.Read, report.Replayed, report.Skipped, report.DryRun)
			return err
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum records to replay, 0 for all")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only log what would be replayed")
	return cmd
}
