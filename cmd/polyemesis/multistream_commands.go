package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"polyemesis/internal/multistream"
)

func newMultistreamCommand(ctx *commandContext) *cobra.Command {
	msCmd := &cobra.Command{
		Use:     "multistream",
		Aliases: []string{"ms"},
		Short:   "Distribute one input stream to multiple services",
	}

	msCmd.AddCommand(newMultistreamStartCommand(ctx))
	msCmd.AddCommand(newMultistreamStopCommand(ctx))
	msCmd.AddCommand(newMultistreamStatusCommand(ctx))
	msCmd.AddCommand(newDestinationListCommand(ctx))
	msCmd.AddCommand(newDestinationAddCommand(ctx))
	msCmd.AddCommand(newDestinationRemoveCommand(ctx))
	msCmd.AddCommand(newDestinationEnableCommand(ctx, true))
	msCmd.AddCommand(newDestinationEnableCommand(ctx, false))
	msCmd.AddCommand(newDestinationUpdateCommand(ctx))
	msCmd.AddCommand(newOrientationCommand(ctx))

	return msCmd
}

// withMultistream loads the settings record, runs fn against the materialised
// configuration, and writes the record back when fn succeeds.
func (c *commandContext) withMultistream(fn func(*multistream.Orchestrator, *multistream.Config) error) error {
	settings, path, err := c.loadSettings()
	if err != nil {
		return err
	}
	client, err := c.newClient()
	if err != nil {
		return err
	}
	orch, store, err := c.newOrchestrator(client)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := settings.Config()
	if err := fn(orch, cfg); err != nil {
		return err
	}
	settings.CaptureConfig(cfg)
	return settings.Save(path)
}

func newMultistreamStartCommand(ctx *commandContext) *cobra.Command {
	var orientationFlag string

	cmd := &cobra.Command{
		Use:   "start <input-url>",
		Short: "Start distributing an input to every enabled destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withMultistream(func(orch *multistream.Orchestrator, cfg *multistream.Config) error {
				if orientationFlag != "" {
					orientation, err := parseOrientation(orientationFlag)
					if err != nil {
						return err
					}
					cfg.SetSourceOrientation(orientation)
					cfg.SetAutoDetect(false)
				}

				reference, err := orch.Start(cmd.Context(), cfg, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Multistream started (reference %s)\n", reference)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&orientationFlag, "orientation", "", "Source orientation (auto, horizontal, vertical, square)")
	return cmd
}

func newMultistreamStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withMultistream(func(orch *multistream.Orchestrator, cfg *multistream.Config) error {
				reference := cfg.Reference()
				if err := orch.Stop(cmd.Context(), cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Multistream stopped (reference %s)\n", reference)
				return nil
			})
		},
	}
}

func newMultistreamStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the active distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withMultistream(func(orch *multistream.Orchestrator, cfg *multistream.Config) error {
				process, active, err := orch.Status(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, map[string]any{
						"active":  active,
						"process": process,
					})
				}
				out := cmd.OutOrStdout()
				if !active {
					fmt.Fprintln(out, "No active multistream")
					return nil
				}
				fmt.Fprintf(out, "Reference: %s\n", process.Reference)
				fmt.Fprintf(out, "Process:   %s\n", process.ID)
				fmt.Fprintf(out, "State:     %s\n", renderState(process.State, shouldColorize(out)))
				fmt.Fprintf(out, "Uptime:    %s\n", formatUptime(process.UptimeSeconds))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newDestinationListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "destinations",
		Short: "List configured destinations",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := ctx.loadSettings()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, settings.Destinations)
			}

			destinations := settings.Config().Destinations()
			if len(destinations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No destinations configured")
				return nil
			}
			rows := make([][]string, 0, len(destinations))
			for i, d := range destinations {
				rows = append(rows, []string{
					strconv.Itoa(i),
					d.Service.String(),
					d.Orientation.String(),
					yesNo(d.Enabled),
				})
			}
			table := renderTable([]tableColumn{
				{name: "#", numeric: true},
				{name: "Service"},
				{name: "Orientation"},
				{name: "Enabled"},
			}, rows)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newDestinationAddCommand(ctx *commandContext) *cobra.Command {
	var orientationFlag string

	cmd := &cobra.Command{
		Use:   "add <service> <stream-key>",
		Short: "Add a destination; attaches it live when a stream is active",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := parseService(args[0])
			if err != nil {
				return err
			}
			orientation, err := parseOrientation(orientationFlag)
			if err != nil {
				return err
			}
			return ctx.withMultistream(func(orch *multistream.Orchestrator, cfg *multistream.Config) error {
				index, err := orch.AddDestination(cmd.Context(), cfg, service, args[1], orientation)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Destination %s added at index %d\n", service, index)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&orientationFlag, "orientation", "auto", "Destination orientation (auto, horizontal, vertical, square)")
	return cmd
}

func newDestinationRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove a destination; detaches it live when a stream is active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			return ctx.withMultistream(func(orch *multistream.Orchestrator, cfg *multistream.Config) error {
				if err := orch.RemoveDestination(cmd.Context(), cfg, index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Destination %d removed; later indices shift down\n", index)
				return nil
			})
		},
	}
}

func newDestinationEnableCommand(ctx *commandContext, enable bool) *cobra.Command {
	verb, short := "enable", "Enable a destination"
	if !enable {
		verb, short = "disable", "Disable a destination"
	}
	return &cobra.Command{
		Use:   verb + " <index>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			return ctx.withMultistream(func(orch *multistream.Orchestrator, cfg *multistream.Config) error {
				if err := orch.SetDestinationEnabled(cmd.Context(), cfg, index, enable); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Destination %d %sd\n", index, verb)
				return nil
			})
		},
	}
}

func newDestinationUpdateCommand(ctx *commandContext) *cobra.Command {
	var orientationFlag string

	cmd := &cobra.Command{
		Use:   "update <index> <stream-key>",
		Short: "Replace a destination's key and orientation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			orientation, err := parseOrientation(orientationFlag)
			if err != nil {
				return err
			}
			return ctx.withMultistream(func(orch *multistream.Orchestrator, cfg *multistream.Config) error {
				if err := orch.UpdateDestination(cmd.Context(), cfg, index, args[1], orientation); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Destination %d updated\n", index)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&orientationFlag, "orientation", "auto", "Destination orientation (auto, horizontal, vertical, square)")
	return cmd
}

func newOrientationCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <width> <height>",
		Short: "Classify video dimensions into an orientation",
		Args:  cobra.ExactArgs(2),
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid width %q", args[0])
			}
			height, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid height %q", args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), multistream.DetectOrientation(width, height))
			return nil
		},
	}
}
