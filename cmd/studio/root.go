package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var userFlag string

	ctx := newCommandContext(&userFlag)

	rootCmd := &cobra.Command{
		Use:           "studio",
		Short:         "Infinity Studio command line",
		Long:          "Submit avatar, video, and edit generations, watch their progress, and manage history.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "Authenticated user id (omit to run as guest)")

	rootCmd.AddCommand(newAvatarCommand(ctx))
	rootCmd.AddCommand(newVideoCommand(ctx))
	rootCmd.AddCommand(newEditCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newCancelCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))

	return rootCmd
}
