package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCollectivesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collectives",
		Aliases: []string{"collective", "groups"},
		Short:   "Manage collectives",
		Long:    "Create, list, rename and delete collectives, and inspect collective types.",
	}

	cmd.AddCommand(
		newCollectivesCreateCmd(),
		newCollectivesListCmd(),
		newCollectivesRenameCmd(),
		newCollectivesDeleteCmd(),
		newCollectivesTypesCmd(),
		newCollectivesRolesCmd(),
	)

	return cmd
}

func newCollectivesCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <type> <name>",
		Short: "Create a collective",
		Long: `Creates a collective of the given type owned by the current user.

Examples:
  kin collectives create family "The Smiths"
  kin collectives create company Acme`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				c, err := deps.Collectives.HandleCreate(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (%s)\n", c.CollectiveTypeID, c.Name, c.ID)
				return nil
			})
		},
	}
}

func newCollectivesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collectives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				collectives, err := deps.Collectives.HandleList(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(collectives) == 0 {
					fmt.Fprintln(out, "No collectives found.")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tNAME\tCREATED")
				for _, c := range collectives {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.CollectiveTypeID, c.Name, c.CreatedAt.Format(dateLayout))
				}
				return w.Flush()
			})
		},
	}
}

func newCollectivesRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a collective",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				c, err := deps.Collectives.HandleRename(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", c.ID, c.Name)
				return nil
			})
		},
	}
}

func newCollectivesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a collective",
		Long: `Soft-deletes a collective. Its memberships and the relationships they
derived are left in place; remove members first to clean those up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				if err := deps.Collectives.HandleDelete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted collective %s\n", args[0])
				return nil
			})
		},
	}
}

func newCollectivesTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List collective types visible to the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tROLES\tRULES")
				for _, t := range deps.Collectives.HandleTypes() {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", t.ID, t.Name, len(t.Roles), len(t.Rules))
				}
				return w.Flush()
			})
		},
	}
}

func newCollectivesRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles <type>",
		Short: "Show the roles and derivation rules of a collective type",
		Long: `Shows the roles of a collective type and the rule table used when a member joins.

Each rule reads "new member role + existing member role -> relationship (direction)".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				t, err := deps.Collectives.HandleDescribeType(args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n\nRoles:\n", t.Name, t.ID)
				for _, r := range t.Roles {
					fmt.Fprintf(out, "  %-12s %s\n", r.RoleKey, r.Label)
				}

				fmt.Fprintln(out, "\nRules:")
				if len(t.Rules) == 0 {
					fmt.Fprintln(out, "  (none)")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, r := range t.Rules {
					fmt.Fprintf(w, "  %s\t+ %s\t-> %s\t(%s)\n",
						roleKey(r.NewMemberRoleID), roleKey(r.ExistingMemberRoleID), r.RelationshipTypeID, r.Direction)
				}
				return w.Flush()
			})
		},
	}
}
