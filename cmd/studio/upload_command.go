package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a reference image and print its hosted URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd.Context(), func(s *studio) error {
				if s.uploads == nil {
					return fmt.Errorf("image hosting not configured, set UPLOAD_API_KEY")
				}
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				url, err := s.uploads.Upload(cmd.Context(), filepath.Base(args[0]), data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
}
