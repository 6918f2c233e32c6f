package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/cli"
	"github.com/Veraticus/the-spice-must-sort/internal/engine"
	"github.com/Veraticus/the-spice-must-sort/internal/jobs"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type categorizeOptions struct {
	server    string
	ids       []string
	interval  time.Duration
	batchSize int
}

func categorizeCmd() *cobra.Command {
	var opts categorizeOptions

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize unclassified transactions",
		Long: `Run the categorization pipeline over every unclassified transaction, or over
the transactions named with --ids. Merchant rules are tried first, then
account description rules, then the AI classifier in sub-batches.

With --server the job is started on a running 'spice serve' instance and
its progress is polled until it finishes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.server != "" {
				return runRemoteCategorize(cmd, opts)
			}
			return runCategorize(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.ids, "ids", nil, "categorize only these transaction IDs")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "transactions per AI call (default from categorization.batch_size)")
	cmd.Flags().StringVar(&opts.server, "server", "", "base URL of a running spice server, e.g. http://localhost:8080")
	cmd.Flags().DurationVar(&opts.interval, "poll-interval", time.Second, "progress poll interval with --server")

	return cmd
}

func runCategorize(cmd *cobra.Command, opts categorizeOptions) error {
	v := viper.GetViper()
	logger := slog.Default()
	out := cmd.OutOrStdout()

	interrupts := cli.NewInterruptHandler(out, "Categorization",
		"Transactions categorized so far are saved. Run 'spice categorize' again to continue.")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx, v)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := loadTransactions(ctx, store, opts.ids)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No transactions need categorizing."))
		return nil
	}

	p, err := newPipeline(v, store, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Categorizing %d transactions", len(txns))))

	renderer := cli.NewProgressRenderer(out, len(txns))
	batch, runErr := p.categorizer.Run(ctx, txns, engine.RunOptions{BatchSize: opts.batchSize}, renderer.Update)
	_ = renderer.Finish()

	if batch != nil {
		fmt.Fprintln(out, cli.FormatBatchSummary(batch))
	}
	if runErr != nil {
		return fmt.Errorf("categorization aborted: %w", runErr)
	}
	return nil
}

func loadTransactions(ctx context.Context, store engine.Store, ids []string) ([]model.Transaction, error) {
	if len(ids) > 0 {
		txns, err := store.GetTransactionsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions: %w", err)
		}
		return txns, nil
	}

	txns, err := store.GetUnclassifiedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load unclassified transactions: %w", err)
	}
	return txns, nil
}

func runRemoteCategorize(cmd *cobra.Command, opts categorizeOptions) error {
	out := cmd.OutOrStdout()
	client := newRemoteClient(opts.server, nil)

	// Interrupting only stops watching; the server keeps the job running.
	interrupts := cli.NewInterruptHandler(out, "Watching",
		"The job keeps running on the server.")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	started, err := client.Trigger(ctx, jobs.TriggerRequest{TransactionIDs: opts.ids, BatchSize: opts.batchSize})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Categorizing %d transactions on %s", started.TotalTransactions, opts.server)))
	fmt.Fprintln(out, cli.SubtleStyle.Render("batch "+started.BatchID))

	renderer := cli.NewProgressRenderer(out, started.TotalTransactions)
	poll := func(ctx context.Context) (model.BatchJobState, error) {
		return client.Progress(ctx, started.BatchID)
	}
	state, err := cli.WatchJob(ctx, renderer, poll, opts.interval)
	if err != nil {
		return err
	}
	_ = renderer.Finish()

	fmt.Fprintln(out, cli.FormatBatchSummary(cli.SummaryFromState(state)))
	if state.Status == model.JobFailed {
		return fmt.Errorf("categorization job %s failed: %s", state.BatchID, state.ErrorMessage)
	}
	return nil
}
