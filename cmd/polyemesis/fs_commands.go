package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newFSCommand(ctx *commandContext) *cobra.Command {
	fsCmd := &cobra.Command{
		Use:   "fs",
		Short: "Browse and manage files on the media server",
	}

	fsCmd.AddCommand(newFSListCommand(ctx))
	fsCmd.AddCommand(newFSFilesCommand(ctx))
	fsCmd.AddCommand(newFSGetCommand(ctx))
	fsCmd.AddCommand(newFSPutCommand(ctx))
	fsCmd.AddCommand(newFSDeleteCommand(ctx))

	return fsCmd
}

func newFSListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available filesystems",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			filesystems, err := client.ListFilesystems(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(filesystems))
			for _, fs := range filesystems {
				rows = append(rows, []string{fs.Name, fs.Type, fs.Mount})
			}
			table := renderTable([]tableColumn{
				{name: "Name"},
				{name: "Type"},
				{name: "Mount"},
			}, rows)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newFSFilesCommand(ctx *commandContext) *cobra.Command {
	var glob string

	cmd := &cobra.Command{
		Use:   "ls <storage>",
		Short: "List files on a storage backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			entries, err := client.ListFiles(cmd.Context(), args[0], glob)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No files")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				name := entry.Name
				if entry.IsDirectory {
					name += "/"
				}
				rows = append(rows, []string{
					name,
					formatBytes(entry.Size),
					strconv.FormatInt(entry.Modified, 10),
				})
			}
			table := renderTable([]tableColumn{
				{name: "Name"},
				{name: "Size", numeric: true},
				{name: "Modified", numeric: true},
			}, rows)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringVar(&glob, "glob", "", "Filter entries by glob pattern")
	return cmd
}

func newFSGetCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "get <storage> <path>",
		Short: "Download a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			data, err := client.DownloadFile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if outputPath == "" || outputPath == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outputPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", outputPath, formatBytes(uint64(len(data))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a local file instead of stdout")
	return cmd
}

func newFSPutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "put <storage> <path> <local-file>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[2])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[2], err)
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if err := client.UploadFile(cmd.Context(), args[0], args[1], data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s)\n", args[1], formatBytes(uint64(len(data))))
			return nil
		},
	}
}

func newFSDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <storage> <path>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if err := client.DeleteFile(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[1])
			return nil
		},
	}
}
