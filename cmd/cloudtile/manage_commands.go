package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloudtile/internal/storage"
)

func newManageCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manage",
		Short: "Move files in and out of the S3 bucket without converting",
	}

	cmd.AddCommand(newUploadCommand(ctx))
	cmd.AddCommand(newDownloadCommand(ctx))

	return cmd
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a local file to its derived bucket key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := storage.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			result, err := store.Upload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Skipped {
				fmt.Fprintf(out, "Already present, upload skipped: %s\n", result.Key)
			} else {
				fmt.Fprintf(out, "Uploaded %s\n", result.Key)
			}
			return nil
		},
	}
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download NAME",
		Short: "Download a bucket object into the working directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := storage.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			localPath, err := store.Download(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s\n", localPath)
			return nil
		},
	}
}
