package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regbot/cmd/internal/app"
	"regbot/cmd/internal/importer"

	"github.com/spf13/cobra"
)

type options struct {
	file       string
	webhookURL string
	delay      time.Duration
	timeout    time.Duration
	dryRun     bool
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "importer",
		Short: "Bulk-register participants from a CSV file",
		Long: "importer reads a CSV file with name, email and team columns and posts one\n" +
			"register command per row to the bot's Discord webhook.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "data.csv", "CSV file with name,email,team columns")
	f.StringVar(&opts.webhookURL, "webhook-url", os.Getenv("REGBOT_WEBHOOK_URL"), "Discord webhook URL (env REGBOT_WEBHOOK_URL)")
	f.DurationVar(&opts.delay, "delay", importer.DefaultDelay, "pause between rows")
	f.DurationVar(&opts.timeout, "timeout", 15*time.Second, "timeout for one webhook request")
	f.BoolVar(&opts.dryRun, "dry-run", false, "log commands without posting them")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level")
	f.StringVar(&opts.logFormat, "log-format", "pretty", "log format: json or pretty")

	return cmd
}

func run(ctx context.Context, opts options) error {
	log := app.NewLogger(opts.logLevel, opts.logFormat)

	rows, dropped, err := importer.ReadFile(opts.file)
	if err != nil {
		return err
	}
	log.Info("importer.csv.loaded", "file", opts.file, "rows", len(rows), "dropped", dropped)

	p, err := importer.NewPoster(opts.webhookURL,
		importer.WithDelay(opts.delay),
		importer.WithTimeout(opts.timeout),
		importer.WithDryRun(opts.dryRun),
		importer.WithLogger(log),
	)
	if err != nil {
		return err
	}

	rep, err := p.Run(ctx, rows)
	rep.Dropped = dropped
	log.Info("importer.done", "sent", rep.Sent, "failed", rep.Failed, "dropped", rep.Dropped)
	if err != nil {
		return err
	}
	if rep.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed", rep.Failed, len(rows))
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
