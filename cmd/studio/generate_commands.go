package main

import (
	"github.com/spf13/cobra"

	"github.com/veoreg/infinity-studio/internal/submit"
)

func newAvatarCommand(ctx *commandContext) *cobra.Command {
	var req submit.AvatarRequest
	var unsafe bool

	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Generate an avatar from a face reference image",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SafeMode = !unsafe
			req.UseBodyRef = req.BodyRefImageURL != ""
			req.UseComposition = req.CompositionURL != ""
			return ctx.withStudio(cmd.Context(), func(s *studio) error {
				res, err := s.submitter.Avatar(cmd.Context(), ctx.userID(), req)
				if err != nil {
					return err
				}
				return watchResult(cmd, res)
			})
		},
	}

	cmd.Flags().StringVar(&req.FaceImageURL, "face", "", "Face reference image URL (required)")
	cmd.Flags().StringVar(&req.Gender, "gender", "female", "Subject gender")
	cmd.Flags().IntVar(&req.Age, "age", 25, "Subject age")
	cmd.Flags().StringVar(&req.Nationality, "nationality", "", "Subject nationality")
	cmd.Flags().StringVar(&req.BodyType, "body-type", "", "Body type preset")
	cmd.Flags().StringVar(&req.Clothing, "clothing", "casual", "Clothing preset")
	cmd.Flags().StringVar(&req.Role, "role", "", "Character role preset")
	cmd.Flags().StringVar(&req.ArtStyle, "style", "photoreal", "Art style")
	cmd.Flags().StringVar(&req.BodyRefImageURL, "body-ref", "", "Body reference image URL")
	cmd.Flags().StringVar(&req.CompositionURL, "composition", "", "Composition reference image URL")
	cmd.Flags().Float64Var(&req.InstantIDWeight, "identity-weight", 0.8, "Face identity preservation weight")
	cmd.Flags().StringVar(&req.UserPrompt, "prompt", "", "Extra prompt text")
	cmd.Flags().IntVar(&req.Steps, "steps", 0, "Sampling steps (0 = server default)")
	cmd.Flags().Float64Var(&req.GuidanceScale, "guidance", 0, "Guidance scale (0 = server default)")
	cmd.Flags().Int64Var(&req.Seed, "seed", -1, "Seed (-1 = random)")
	cmd.Flags().BoolVar(&req.Upscale, "upscale", false, "Upscale the result")
	cmd.Flags().BoolVar(&unsafe, "unsafe", false, "Disable safe mode (requires --user)")
	_ = cmd.MarkFlagRequired("face")

	return cmd
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var req submit.VideoRequest
	var unsafe bool

	cmd := &cobra.Command{
		Use:   "video",
		Short: "Animate an image into a short video",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SafeMode = !unsafe
			return ctx.withStudio(cmd.Context(), func(s *studio) error {
				res, err := s.submitter.Video(cmd.Context(), ctx.userID(), req)
				if err != nil {
					return err
				}
				return watchResult(cmd, res)
			})
		},
	}

	cmd.Flags().StringVar(&req.ImageURL, "image", "", "Source image URL (required)")
	cmd.Flags().StringVar(&req.TextPrompt, "prompt", "", "Motion prompt (required)")
	cmd.Flags().StringVar(&req.Filename, "filename", "", "Source filename hint")
	cmd.Flags().IntVar(&req.Steps, "steps", 0, "Sampling steps (0 = server default)")
	cmd.Flags().Float64Var(&req.GuidanceScale, "guidance", 0, "Guidance scale (0 = server default)")
	cmd.Flags().Int64Var(&req.Seed, "seed", -1, "Seed (-1 = random)")
	cmd.Flags().BoolVar(&unsafe, "unsafe", false, "Disable safe mode (requires --user)")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var req submit.EditRequest
	var unsafe bool

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Refine an earlier result with an instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SafeMode = !unsafe
			return ctx.withStudio(cmd.Context(), func(s *studio) error {
				res, err := s.submitter.Edit(cmd.Context(), ctx.userID(), req)
				if err != nil {
					return err
				}
				return watchResult(cmd, res)
			})
		},
	}

	cmd.Flags().StringVar(&req.SourceJobID, "source", "", "Source generation id (required)")
	cmd.Flags().StringVar(&req.Instruction, "instruction", "", "Edit instruction (required)")
	cmd.Flags().Int64Var(&req.Seed, "seed", -1, "Seed (-1 = random)")
	cmd.Flags().BoolVar(&unsafe, "unsafe", false, "Disable safe mode (requires --user)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("instruction")

	return cmd
}
