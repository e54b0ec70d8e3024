// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bodaay/prepamirror/pkg/mirror"
)

const configName = "prepamirror"

// DefaultConfig returns the default configuration.
func DefaultConfig() map[string]any {
	job := mirror.DefaultJob()
	def := mirror.DefaultSettings()
	return map[string]any{
		"site":            job.Site,
		"listing":         job.Listing,
		"output":          job.OutputDir,
		"extension":       def.Extension,
		"recent-heading":  def.RecentHeading,
		"timeout":         def.Timeout,
		"retries":         def.Retries,
		"backoff-initial": def.BackoffInitial,
		"backoff-max":     def.BackoffMax,
		"login":           "",
		"update":          false,
	}
}

// configCandidates lists the config paths looked up, in order.
func configCandidates() []string {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".config")
	return []string{
		filepath.Join(dir, configName+".json"),
		filepath.Join(dir, configName+".yaml"),
		filepath.Join(dir, configName+".yml"),
	}
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	for _, p := range configCandidates() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		useYAML bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Long: `Creates a default configuration file at ~/.config/prepamirror.json (or .yaml)

The configuration file sets default values for the mirror flags.
CLI flags always override config file values. The password is never
read from the config file; use PREPA_PASSWORD or the prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("could not find home directory: %w", err)
			}

			configDir := filepath.Join(home, ".config")
			ext := ".json"
			if useYAML {
				ext = ".yaml"
			}
			configPath := filepath.Join(configDir, configName+ext)

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
			}
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				return fmt.Errorf("could not create config directory: %w", err)
			}

			cfg := DefaultConfig()
			var data []byte
			if useYAML {
				data, err = yaml.Marshal(cfg)
			} else {
				data, err = json.MarshalIndent(cfg, "", "  ")
			}
			if err != nil {
				return err
			}

			if err := os.WriteFile(configPath, data, 0o600); err != nil {
				return fmt.Errorf("could not write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created config file: %s\n", configPath)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Edit this file to set your defaults. For example:")
			fmt.Fprintln(out, "  - Set your login")
			fmt.Fprintln(out, "  - Point site/listing at another class")
			fmt.Fprintln(out, "  - Turn on update mode")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config file")
	cmd.Flags().BoolVar(&useYAML, "yaml", false, "Create YAML config instead of JSON")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			configPath := findConfigFile()
			if configPath == "" {
				fmt.Fprintln(out, "No config file found.")
				fmt.Fprintf(out, "Run 'prepamirror config init' to create one at:\n  %s\n", configCandidates()[0])
				return nil
			}

			data, err := os.ReadFile(configPath)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Config file: %s\n\n", configPath)
			fmt.Fprintln(out, string(data))

			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			configPath := findConfigFile()
			if configPath == "" {
				configPath = configCandidates()[0]
			}
			fmt.Fprintln(cmd.OutOrStdout(), configPath)
		},
	}
}
