package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Inspect and manage processes on the media server",
	}

	processCmd.AddCommand(newProcessListCommand(ctx))
	processCmd.AddCommand(newProcessShowCommand(ctx))
	processCmd.AddCommand(newProcessControlCommand(ctx, "start", "Start a process"))
	processCmd.AddCommand(newProcessControlCommand(ctx, "stop", "Stop a process"))
	processCmd.AddCommand(newProcessControlCommand(ctx, "restart", "Restart a process"))
	processCmd.AddCommand(newProcessDeleteCommand(ctx))
	processCmd.AddCommand(newProcessLogsCommand(ctx))
	processCmd.AddCommand(newProcessStateCommand(ctx))
	processCmd.AddCommand(newProcessProbeCommand(ctx))

	return processCmd
}

func newProcessListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			processes, err := client.ListProcesses(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, processes)
			}
			if len(processes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No processes")
				return nil
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			rows := make([][]string, 0, len(processes))
			for _, p := range processes {
				rows = append(rows, []string{
					p.ID,
					p.Reference,
					renderState(p.State, colorize),
					formatUptime(p.UptimeSeconds),
					fmt.Sprintf("%.1f%%", p.CPUUsage),
					formatBytes(p.MemoryBytes),
				})
			}
			table := renderTable([]tableColumn{
				{name: "ID"},
				{name: "Reference"},
				{name: "State"},
				{name: "Uptime", numeric: true},
				{name: "CPU", numeric: true},
				{name: "Memory", numeric: true},
			}, rows)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newProcessShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			process, err := client.GetProcess(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, process)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", process.ID)
			fmt.Fprintf(out, "Reference: %s\n", process.Reference)
			fmt.Fprintf(out, "State:     %s\n", renderState(process.State, shouldColorize(out)))
			fmt.Fprintf(out, "Uptime:    %s\n", formatUptime(process.UptimeSeconds))
			fmt.Fprintf(out, "CPU:       %.1f%%\n", process.CPUUsage)
			fmt.Fprintf(out, "Memory:    %s\n", formatBytes(process.MemoryBytes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newProcessControlCommand(ctx *commandContext, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			switch verb {
			case "start":
				err = client.StartProcess(cmd.Context(), args[0])
			case "stop":
				err = client.StopProcess(cmd.Context(), args[0])
			default:
				err = client.RestartProcess(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Process %s: %s issued\n", args[0], verb)
			return nil
		},
	}
}

func newProcessDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if err := client.DeleteProcess(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Process %s deleted\n", args[0])
			return nil
		},
	}
}

func newProcessLogsCommand(ctx *commandContext) *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs <id>",
		Short: "Show the log of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			entries, err := client.ProcessLogs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if tail > 0 && len(entries) > tail {
				entries = entries[len(entries)-tail:]
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

	cmd.Flags().IntVar(&tail, "tail", 0, "Show only the last N entries")
	return cmd
}

func newProcessStateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "state <id>",
		Short: "Show live progress metrics of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			state, err := client.GetProcessState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, state)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running:        %s\n", yesNo(state.Running))
			fmt.Fprintf(out, "Order:          %s\n", state.Order)
			fmt.Fprintf(out, "Frames:         %d (%d dropped)\n", state.Frames, state.DroppedFrames)
			fmt.Fprintf(out, "Bitrate:        %d kbit/s\n", state.BitrateKbps)
			fmt.Fprintf(out, "FPS:            %.1f\n", state.FPS)
			fmt.Fprintf(out, "Written:        %s\n", formatBytes(state.BytesWritten))
			fmt.Fprintf(out, "Packets:        %d\n", state.PacketsSent)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newProcessProbeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <id>",
		Short: "Probe the input streams of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			info, err := client.ProbeInput(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Format: %s\n", info.FormatName)
			rows := make([][]string, 0, len(info.Streams))
			for _, s := range info.Streams {
				dims := "-"
				if s.Width > 0 {
					dims = fmt.Sprintf("%dx%d", s.Width, s.Height)
				}
				rows = append(rows, []string{
					s.CodecType,
					s.CodecName,
					dims,
					strconv.Itoa(s.Bitrate),
				})
			}
			if len(rows) > 0 {
				table := renderTable([]tableColumn{
					{name: "Type"},
					{name: "Codec"},
					{name: "Dimensions", numeric: true},
					{name: "Bitrate", numeric: true},
				}, rows)
				fmt.Fprintln(out, table)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
