package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ersonp/kin-core/internal/application/handlers"
)

func newTypesCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List relationship types",
		Long: `Lists the relationship types in the catalog with their inverses.

Examples:
  kin types
  kin types --category family`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				types, err := deps.Types.HandleList(category)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCATEGORY\tLABEL\tINVERSE")
				for _, t := range types {
					inverse := t.InverseTypeID
					switch {
					case !t.HasInverse():
						inverse = "-"
					case t.SelfSymmetric():
						inverse = "(self)"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Category, t.Label, inverse)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category ("+handlers.CategoryNames()+")")

	return cmd
}
