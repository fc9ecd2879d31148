package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/worknest/worknest-go/apierror"
)

func newFilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage stored files (avatars, task attachments)",
	}

	upload := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file to storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			stored, err := a.files.Upload(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Printf("Uploaded %s (%s)\n", stored.Name, stored.ID)
			return nil
		},
	}

	var out string
	download := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Download a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			body, err := a.files.Download(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			defer body.Close()

			var dst io.Writer = os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				dst = f
			}
			if _, err := io.Copy(dst, body); err != nil {
				return err
			}
			return nil
		},
	}
	download.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")

	del := &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.files.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", apierror.MessageOf(err))
			}
			fmt.Println("File deleted.")
			return nil
		},
	}

	cmd.AddCommand(upload, download, del)
	return cmd
}
