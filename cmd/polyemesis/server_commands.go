package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newServerCommand(ctx *commandContext) *cobra.Command {
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Inspect and manage the media server itself",
	}

	serverCmd.AddCommand(newServerPingCommand(ctx))
	serverCmd.AddCommand(newServerInfoCommand(ctx))
	serverCmd.AddCommand(newServerSessionsCommand(ctx))
	serverCmd.AddCommand(newServerSkillsCommand(ctx))
	serverCmd.AddCommand(newServerConfigCommand(ctx))
	serverCmd.AddCommand(newServerLogsCommand(ctx))
	serverCmd.AddCommand(newServerStreamsCommand(ctx, "rtmp"))
	serverCmd.AddCommand(newServerStreamsCommand(ctx, "srt"))
	serverCmd.AddCommand(newServerMetadataCommand(ctx))

	return serverCmd
}

func newServerPingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the media server is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if err := client.Ping(cmd.Context()); err != nil {
				return err
			}
			conn := client.Connection()
			fmt.Fprintf(cmd.OutOrStdout(), "Server %s:%d is reachable\n", conn.Host, conn.Port)
			return nil
		},
	}
}

func newServerInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show media server build identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			info, err := client.Info(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:    %s\n", info.Name)
			fmt.Fprintf(out, "Version: %s\n", info.Version)
			fmt.Fprintf(out, "Built:   %s\n", info.BuildDate)
			fmt.Fprintf(out, "Commit:  %s\n", info.Commit)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newServerSessionsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Summarise active viewer sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			summary, err := client.ActiveSessions(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Active sessions: %d\n", summary.SessionCount)
			fmt.Fprintf(out, "Sent:            %s\n", formatBytes(summary.TotalTxBytes))
			fmt.Fprintf(out, "Received:        %s\n", formatBytes(summary.TotalRxBytes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newServerSkillsCommand(ctx *commandContext) *cobra.Command {
	var reload bool

	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Show the media engine capability report",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if reload {
				if err := client.ReloadSkills(cmd.Context()); err != nil {
					return err
				}
			}
			skills, err := client.Skills(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, skills)
		},
	}

	cmd.Flags().BoolVar(&reload, "reload", false, "Re-detect capabilities first")
	return cmd
}

func newServerConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and replace the server configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active server configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			cfg, err := client.ServerConfig(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <file>",
		Short: "Replace the server configuration from a JSON file ('-' for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read configuration: %w", err)
			}

			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if err := client.SetServerConfig(cmd.Context(), json.RawMessage(data)); err != nil {
				return err
			}
			if err := client.ReloadServerConfig(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Server configuration replaced and reloaded")
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Apply the stored server configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if err := client.ReloadServerConfig(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Server configuration reloaded")
			return nil
		},
	})

	return configCmd
}

func newServerLogsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Show the media server's own log feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			entries, err := client.ServerLogs(cmd.Context())
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if entry.Timestamp != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", entry.Timestamp, entry.Message)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), entry.Message)
			}
			return nil
		},
	}
}

func newServerStreamsCommand(ctx *commandContext, protocol string) *cobra.Command {
	return &cobra.Command{
		Use:   protocol,
		Short: "List streams published on the " + protocol + " ingest",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			var streams json.RawMessage
			if protocol == "rtmp" {
				streams, err = client.RTMPStreams(cmd.Context())
			} else {
				streams, err = client.SRTStreams(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd, streams)
		},
	}
}

func newServerMetadataCommand(ctx *commandContext) *cobra.Command {
	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "Read and write server-wide metadata",
	}

	metadataCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Read metadata under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			value, err := client.Metadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, value)
		},
	})

	metadataCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <json-value>",
		Short: "Store metadata under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("value is not valid JSON")
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if err := client.SetMetadata(cmd.Context(), args[0], json.RawMessage(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Metadata %s stored\n", args[0])
			return nil
		},
	})

	return metadataCmd
}
