package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/veoreg/infinity-studio/internal/monitor"
	"github.com/veoreg/infinity-studio/internal/submit"
)

func watchResult(cmd *cobra.Command, res *submit.Result) error {
	fmt.Fprintf(cmd.OutOrStdout(), "submitted %s\n", res.Job.ID)
	if res.Warning != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %v\n", res.Warning)
	}
	return watchMonitor(cmd, res.Monitor)
}

// watchMonitor renders staged progress until the monitor resolves. Ctrl-C
// cancels the command context; the job itself keeps running server-side and
// can be picked up again with `studio watch`.
func watchMonitor(cmd *cobra.Command, m *monitor.Monitor) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	lastStage := ""
	for {
		select {
		case <-cmd.Context().Done():
			m.Abandon()
			fmt.Fprintln(cmd.OutOrStdout(), "\ndetached; resume with `studio watch`")
			return cmd.Context().Err()
		case <-m.Done():
			return printOutcome(cmd, m)
		case <-ticker.C:
			p := m.Progress(time.Now())
			if p.Stage != lastStage {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s ", p.Stage)
				lastStage = p.Stage
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\r%3d%%  %s", p.Percent, p.Stage)
		}
	}
}

func printOutcome(cmd *cobra.Command, m *monitor.Monitor) error {
	o, ok := m.Outcome()
	if !ok {
		return fmt.Errorf("monitor stopped without an outcome")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	switch o.State {
	case monitor.StateSucceeded:
		fmt.Fprintf(cmd.OutOrStdout(), "done: %s\n", o.URL)
		return nil
	case monitor.StateCanceled:
		fmt.Fprintln(cmd.OutOrStdout(), "canceled")
		return nil
	case monitor.StateTimedOut:
		fmt.Fprintf(cmd.OutOrStdout(), "still running: %s\n", o.Message)
		return nil
	default:
		return fmt.Errorf("generation failed: %s", o.Message)
	}
}
