package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/dlq"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print dead letters of a queue without removing them",
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

			out := cmd.OutOrStdout()
			n, err := dlq.NewReplayer(logger, source, nil).List(cmd.Context(), limit, func(dl eventbus.DeadLetter) error {
				return printDeadLetter(out, dl, asJSON)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d dead letter(s) in %s\n", n, eventbus.DeadLetterQueue(opts.Queue))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum records to print, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw records as JSON lines")
	return cmd
}

func printDeadLetter(w io.Writer, dl eventbus.DeadLetter, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(dl)
	}
	_, err := fmt.Fprintf(w, "%s  %-28s event_id=%s key=%s attempts=%d topic=%s[%d]@%d\n    error: %s\n",
		dl.FailedAt.Format("2006-01-02T15:04:05Z07:00"),
		dl.EventType,
		dl.EventID,
		dl.OriginalKey,
		dl.Attempts,
		dl.OriginalTopic,
		dl.OriginalPartition,
		dl.OriginalOffset,
		dl.ErrorMessage,
	)
	return err
}
