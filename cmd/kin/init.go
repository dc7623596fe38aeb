package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/kin-core/internal/application/handlers"
)

func newInitCmd() *cobra.Command {
	var writeCatalog bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new kin workspace",
		Long: `Creates a .kin directory with default configuration and sets up the relational schema.

With --catalog the built-in relationship catalog is written to .kin/catalog.yaml
so relationship types, collective types and derivation rules can be edited.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			result, err := handlers.NewInitHandler(openStore).Handle(cmd.Context(), cwd, handlers.InitOptions{
				WriteCatalog: writeCatalog,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", result.ConfigPath)
			if result.CatalogPath != "" {
				fmt.Fprintf(out, "Created %s\n", result.CatalogPath)
			}
			fmt.Fprintf(out, "Schema ready (%s)\n", result.Driver)
			return nil
		},
	}

	cmd.Flags().BoolVar(&writeCatalog, "catalog", false, "Write the built-in catalog to .kin/catalog.yaml")

	return cmd
}
