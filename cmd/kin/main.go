// Package main provides the entry point for the kin CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0-dev"
	globalUser string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kin",
		Short:         "A contact relationship graph with edges derived from shared collectives",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultUser := os.Getenv("KIN_USER")
	if defaultUser == "" {
		defaultUser = "local"
	}
	rootCmd.PersistentFlags().StringVarP(&globalUser, "user", "u", defaultUser, "User owning collectives (or set KIN_USER)")

	rootCmd.AddCommand(
		newInitCmd(),
		newTypesCmd(),
		newCollectivesCmd(),
		newMembersCmd(),
		newRelateCmd(),
		newRelationsCmd(),
		newShowCmd(),
		newImportCmd(),
	)

	return rootCmd
}
