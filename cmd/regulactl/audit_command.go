package main

import (
	"fmt"
	"os"
	"strconv"

	"go-regula/internal/common/apperr"
	"go-regula/internal/database"

	"github.com/spf13/cobra"
)

func newAuditCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect a workflow's audit trail",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <workflow-id>",
		Short: "Print the audit trail in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			entries, err := s.ledger.List(ctx, args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return apperr.NotFound("no audit entries for workflow %s", args[0])
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				step := "-"
				if e.StepIndex != nil {
					step = strconv.Itoa(*e.StepIndex)
				}
				rows = append(rows, []string{
					strconv.FormatInt(e.Seq, 10),
					database.FormatTime(e.Timestamp)[:19],
					string(e.Action),
					orDash(e.FromStatus) + " -> " + e.ToStatus,
					e.PerformedBy.Email + " (" + string(e.PerformedBy.Role) + ")",
					step,
					orDash(e.Comment),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Seq", "Time (UTC)", "Action", "Status", "Actor", "Step", "Comment"}, rows,
				[]columnAlignment{alignRight}))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <workflow-id>",
		Short: "Recompute the hash chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.ledger.Verify(ctx, args[0])
			if err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("audit chain broken at seq %d (%s): %s", res.BrokenAt, res.BrokenID, res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Audit chain valid (%d entries)\n", res.Entries)
			return nil
		},
	})

	var out string
	export := &cobra.Command{
		Use:   "export <workflow-id>",
		Short: "Write the audit trail to an XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			path := out
			if path == "" {
				path = "audit-" + args[0] + ".xlsx"
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := s.ledger.Export(ctx, args[0], f); err != nil {
				_ = f.Close()
				_ = os.Remove(path)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "output", "o", "", "Output file (default audit-<id>.xlsx)")
	cmd.AddCommand(export)

	return cmd
}
