package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/kin-core/internal/application/handlers"
)

type importFlags struct {
	format     string
	dryRun     bool
	onConflict string
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import memberships and relationships from JSON or CSV",
		Long: `Imports memberships and manual relationships from a structured file.

Each record has a kind. Membership records use collective, contact, role and
optionally joined; relationship records use from, type and to. Both accept
notes. Memberships derive relationships as they are added, so row order
matters.

CSV example:
  kind,collective,contact,role,from,type,to
  membership,<family-id>,alice,parent,,,
  membership,<family-id>,carol,child,,,
  relationship,,,,alice,friend,bob`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, csv, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")
	cmd.Flags().StringVar(&flags.onConflict, "on-conflict", handlers.ConflictSkip, "Duplicate handling (skip, fail)")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	return withDeps(cmd.Context(), func(deps *Deps) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Importing %s...\n", filePath)

		result, err := deps.Import.Handle(cmd.Context(), filePath, handlers.ImportOptions{
			Format:     flags.format,
			DryRun:     flags.dryRun,
			OnConflict: flags.onConflict,
		})
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		if len(result.Errors) > 0 {
			fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  %s\n", e.Error())
			}
		}

		fmt.Fprintln(out)
		verb := "Imported"
		if flags.dryRun {
			verb = "Dry run: would import"
		}
		fmt.Fprintf(out, "%s %d membership(s), %d relationship(s)", verb, result.Memberships, result.Relationships)
		if result.Derived > 0 {
			fmt.Fprintf(out, ", %d derived", result.Derived)
		}
		if result.Skipped > 0 {
			fmt.Fprintf(out, ", %d skipped (already exist)", result.Skipped)
		}
		fmt.Fprintln(out)

		if len(result.Errors) > 0 {
			return fmt.Errorf("%d record(s) failed", len(result.Errors))
		}
		return nil
	})
}
