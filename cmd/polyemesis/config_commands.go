package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"polyemesis/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigServerCommand(ctx))
	configCmd.AddCommand(newConfigTestCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := os.WriteFile(target, []byte(config.Sample()), 0o600); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to point at your media server before running polyemesis.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigServerCommand(ctx *commandContext) *cobra.Command {
	var (
		host     string
		port     int
		useHTTPS bool
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Store media server connection details in the settings record",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, path, err := ctx.loadSettings()
			if err != nil {
				return err
			}

			if host != "" {
				settings.Host = host
			}
			if port != 0 {
				settings.Port = port
			}
			if cmd.Flags().Changed("https") {
				settings.UseHTTPS = useHTTPS
			}
			if username != "" {
				settings.Username = username
			}
			if password != "" {
				settings.Password = password
			}

			if err := settings.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings saved: %s\n", settings.Describe())
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Media server host")
	cmd.Flags().IntVar(&port, "port", 0, "Media server port")
	cmd.Flags().BoolVar(&useHTTPS, "https", false, "Use HTTPS")
	cmd.Flags().StringVar(&username, "username", "", "API username")
	cmd.Flags().StringVar(&password, "password", "", "API password")
	return cmd
}

func newConfigTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Verify the stored credentials against the media server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if err := client.TestConnection(cmd.Context()); err != nil {
				return err
			}
			conn := client.Connection()
			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated against %s:%d\n", conn.Host, conn.Port)
			return nil
		},
	}
}
