// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the StaffDesk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staffdesk",
		Short: "StaffDesk - employee management with session authentication",
		Long: `StaffDesk serves a login-protected employee dashboard and its REST API,
with JWT sessions carried by cookie or bearer header.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (YAML; default $XDG_CONFIG_HOME/staffdesk/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewHashCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// loadConfig layers the config file, environment and the command's changed
// flags named in flagKeys. Without --config the XDG config file is used
// when it exists.
func loadConfig(cmd *cobra.Command, flagKeys map[string]string) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path = configFile
	}
	if path == "" {
		if path, err = xdg.ConfigFile(); err != nil {
			return nil, err
		}
	}
	return config.Load(path, cmd.Flags(), flagKeys)
}
