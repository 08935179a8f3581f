package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veoreg/infinity-studio/internal/domain"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Resume watching the persisted in-flight generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd.Context(), func(s *studio) error {
				sess, err := s.sessions.LoadActive()
				if err != nil {
					if errors.Is(err, domain.ErrNoActiveSession) {
						fmt.Fprintln(cmd.OutOrStdout(), "no active generation")
						return nil
					}
					return err
				}
				m, err := s.tracker.Resume(cmd.Context(), sess)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "resuming %s (%s)\n", sess.JobID, sess.Kind)
				return watchMonitor(cmd, m)
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [generation-id]",
		Short: "Cancel the in-flight generation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd.Context(), func(s *studio) error {
				id := ""
				if len(args) == 1 {
					id = args[0]
				} else if sess, err := s.sessions.LoadActive(); err == nil {
					id = sess.JobID
				}
				if id == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to cancel")
					return nil
				}
				s.submitter.Cancel(id)
				fmt.Fprintf(cmd.OutOrStdout(), "canceled %s\n", id)
				return nil
			})
		},
	}
}
