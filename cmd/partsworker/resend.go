package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"motorciclye/partsworker/internal/artifact"
	"motorciclye/partsworker/services/publisher"
	"motorciclye/partsworker/services/worker"
)

func newResendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend <site> <timestamp>",
		Short: "Replay a finished run's records to the broker",
		Long: `Resend reads build/<site>/<timestamp>/<site>.json and publishes
every record again under its original routing key. The timestamp is the
run directory name (` + artifact.TimestampLayout + ` format).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pub, err := publisher.NewAMQPPublisher(ctx, cfg.Broker)
			if err != nil {
				return err
			}
			defer pub.Close()

			store := artifact.NewStore(cfg.Crawl.BuildDir)
			w := worker.New(pub, store, cfg.Broker.RoutingKeyPrefix, nil, nil)

			sent, err := w.Resend(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resent %d records for %s/%s\n", sent, args[0], args[1])
			return nil
		},
	}
}
