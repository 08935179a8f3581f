package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veoreg/infinity-studio/internal/domain"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd.Context(), func(s *studio) error {
				owner, err := s.owner(ctx.userID())
				if err != nil {
					return err
				}
				jobs, err := s.store.ListCompleted(cmd.Context(), owner, limit)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no completed generations")
					return nil
				}
				for i := range jobs {
					job := &jobs[i]
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-6s  %s  %s\n",
						job.CreatedAt.Format("2006-01-02 15:04"),
						job.Kind,
						job.ID,
						job.FinalURL(true))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <generation-id>",
		Short: "Delete a generation from history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd.Context(), func(s *studio) error {
				err := s.store.Delete(cmd.Context(), args[0])
				if errors.Is(err, domain.ErrNotFound) {
					// Built-in showcase assets are not rows; hiding them is
					// recorded locally.
					if err := s.sessions.MarkDefaultDeleted(args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "hidden built-in asset %s\n", args[0])
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}
