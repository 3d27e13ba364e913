// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the RentNest CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rentnest",
		Short: "RentNest - property rental backend",
		Long: `RentNest is the backend for a multi-tenant property rental platform.
This binary runs the authentication and session-lifecycle service.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
