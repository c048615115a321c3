package main

import (
	"fmt"
	"strconv"

	"go-regula/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newDeliveriesCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deliveries",
		Short: "Inspect the webhook delivery queue",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the most recent delivery records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			recent, err := s.webhooks.ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			stats, err := s.webhooks.Stats(ctx)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(recent))
			for _, d := range recent {
				rows = append(rows, []string{
					d.ID,
					d.WorkflowTitle,
					d.Event,
					string(d.Status),
					strconv.Itoa(d.Attempt),
					database.FormatTime(d.NextRetryAt)[:19],
					orDash(d.LastError),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Workflow", "Event", "Status", "Attempt", "Next retry (UTC)", "Last error"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			fmt.Fprintf(out, "Total %d, pending %d, succeeded %d, failures %d (%s)\n",
				stats.Total, stats.Pending, stats.Succeeded, stats.Failures, stats.FailureRate)
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "Number of records")
	cmd.AddCommand(list)
	return cmd
}

func newRunCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one delivery batch and one SLA check, then exit",
		Long: "Runs the same work as the server's scheduled jobs once. Useful from an " +
			"external cron when the API runs without its in-process scheduler.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			monitor, dispatcher := s.monitor()
			defer func() {
				if err := dispatcher.Close(ctx); err != nil {
					s.log.Warn("Notification dispatcher did not drain", zap.Error(err))
				}
			}()

			var (
				batchSent int
				breached  int
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				res, err := s.webhooks.ProcessBatch(gctx)
				batchSent = res.Succeeded
				fmt.Fprintf(cmd.OutOrStdout(), "Deliveries: %d claimed, %d delivered, %d failed, %d aborted\n",
					res.Claimed, res.Succeeded, res.Failed, res.Aborted)
				return err
			})
			g.Go(func() error {
				n, err := monitor.CheckDeadlines(gctx)
				breached = n
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "SLA: %d workflow(s) escalated\n", breached)
			s.log.Info("One-shot run finished", zap.Int("delivered", batchSent), zap.Int("escalated", breached))
			return nil
		},
	}
}
