package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/kin-core/internal/application/handlers"
	"github.com/ersonp/kin-core/internal/domain/entities"
)

func newRelateCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "relate <from> <type> <to>",
		Short: "Create a manual relationship between two contacts",
		Long: `Creates a relationship that reads "<from> is <type> of <to>".

The inverse relationship is created as well when the type has one.

Examples:
  kin relate alice mentor bob
  kin relate alice friend carol --notes "met at university"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				pair, err := deps.Relationships.HandleCreate(cmd.Context(), args[0], args[1], args[2], notes)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				r := pair.Relationship
				fmt.Fprintf(out, "Created: %s -[%s]-> %s (%s)\n", r.FromContactID, r.RelationshipTypeID, r.ToContactID, r.ID)
				if inv := pair.Inverse; inv != nil {
					fmt.Fprintf(out, "Inverse: %s -[%s]-> %s (%s)\n", inv.FromContactID, inv.RelationshipTypeID, inv.ToContactID, inv.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")

	cmd.AddCommand(
		newRelateUpdateCmd(),
		newRelateDeleteCmd(),
		newRelateHistoryCmd(),
	)

	return cmd
}

func newRelateUpdateCmd() *cobra.Command {
	var relType, notes string

	cmd := &cobra.Command{
		Use:   "update <relationship-id>",
		Short: "Change the type or notes of a manual relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts handlers.UpdateOptions
			if cmd.Flags().Changed("type") {
				opts.Type = &relType
			}
			if cmd.Flags().Changed("notes") {
				opts.Notes = &notes
			}
			if opts.Type == nil && opts.Notes == nil {
				return errors.New("nothing to update: pass --type or --notes")
			}

			return withDeps(cmd.Context(), func(deps *Deps) error {
				r, err := deps.Relationships.HandleUpdate(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated: %s -[%s]-> %s (%s)\n", r.FromContactID, r.RelationshipTypeID, r.ToContactID, r.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&relType, "type", "", "New relationship type")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes (empty clears)")

	return cmd
}

func newRelateDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <relationship-id>",
		Short: "Delete a manual relationship and its inverse",
		Long: `Deletes a manual relationship together with its manual inverse.

Derived relationships cannot be deleted directly; remove the membership
that derived them instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				err := deps.Relationships.HandleDelete(cmd.Context(), args[0])
				if errors.Is(err, entities.ErrDerivedRelationship) {
					return fmt.Errorf("%w: remove the membership that derived it", err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted relationship %s\n", args[0])
				return nil
			})
		},
	}
}

func newRelateHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <relationship-id>",
		Short: "Show the audit trail of a relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				entries, err := deps.Relationships.HandleHistory(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No history found.")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action)
				}
				return nil
			})
		},
	}
}
