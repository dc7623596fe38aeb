package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ersonp/kin-core/internal/application/handlers"
	"github.com/ersonp/kin-core/internal/domain/entities"
)

func newMembersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "members",
		Aliases: []string{"member"},
		Short:   "Manage collective memberships",
		Long: `Adds contacts to collectives and removes them again.

Adding a member derives relationships with every active member according to
the collective type's rules. Removing a member deletes the relationships it
derived. Deactivating keeps them.`,
	}

	cmd.AddCommand(
		newMembersAddCmd(),
		newMembersRemoveCmd(),
		newMembersDeactivateCmd(),
		newMembersReactivateCmd(),
		newMembersReapplyCmd(),
		newMembersListCmd(),
	)

	return cmd
}

type membersAddFlags struct {
	role   string
	joined string
	notes  string
}

func newMembersAddCmd() *cobra.Command {
	var flags membersAddFlags

	cmd := &cobra.Command{
		Use:   "add <collective-id> <contact-id>",
		Short: "Add a contact to a collective",
		Long: `Adds a contact to a collective under a role and derives its relationships.

Examples:
  kin members add <family-id> alice --role parent
  kin members add <family-id> carol --role child --joined 2019-04-02`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.role == "" {
				return errors.New("--role is required")
			}

			return withDeps(cmd.Context(), func(deps *Deps) error {
				result, err := deps.Memberships.HandleAdd(cmd.Context(), handlers.AddRequest{
					CollectiveID: args[0],
					ContactID:    args[1],
					Role:         flags.role,
					JoinedDate:   flags.joined,
					Notes:        flags.notes,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				m := result.Membership
				fmt.Fprintf(out, "Added %s as %s (membership %s)\n", m.ContactID, roleKey(m.RoleID), m.ID)
				if len(result.Derived) == 0 {
					fmt.Fprintln(out, "No relationships derived.")
					return nil
				}
				fmt.Fprintf(out, "Derived %d relationship(s):\n", len(result.Derived))
				printEdges(out, result.Derived)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&flags.role, "role", "r", "", "Role key or id (e.g. child, family.child)")
	cmd.Flags().StringVar(&flags.joined, "joined", "", "Join date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.notes, "notes", "", "Free-form notes")

	return cmd
}

func newMembersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <membership-id>",
		Short: "Remove a membership and the relationships it derived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				if err := deps.Memberships.HandleRemove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed membership %s\n", args[0])
				return nil
			})
		},
	}
}

func newMembersDeactivateCmd() *cobra.Command {
	var reason, date string

	cmd := &cobra.Command{
		Use:   "deactivate <membership-id>",
		Short: "Mark a membership inactive",
		Long:  "Marks a membership inactive. Relationships it derived are kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				m, err := deps.Memberships.HandleDeactivate(cmd.Context(), args[0], reason, date)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deactivated membership %s on %s\n", m.ID, m.InactiveDate.Format(dateLayout))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the membership ended")
	cmd.Flags().StringVar(&date, "date", "", "Inactive date (YYYY-MM-DD, default today)")

	return cmd
}

func newMembersReactivateCmd() *cobra.Command {
	var reapply bool

	cmd := &cobra.Command{
		Use:   "reactivate <membership-id>",
		Short: "Mark a membership active again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				m, written, err := deps.Memberships.HandleReactivate(cmd.Context(), args[0], reapply)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reactivated membership %s\n", m.ID)
				if reapply {
					fmt.Fprintf(out, "Wrote %d relationship(s)\n", written)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reapply, "reapply", false, "Re-run derivation rules against the current members")

	return cmd
}

func newMembersReapplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reapply <membership-id>",
		Short: "Re-run derivation rules for an active membership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				written, err := deps.Memberships.HandleReapply(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d relationship(s)\n", written)
				return nil
			})
		},
	}
}

type membersListFlags struct {
	collective string
	contact    string
	active     bool
}

func newMembersListCmd() *cobra.Command {
	var flags membersListFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memberships of a collective or a contact",
		Long: `Lists memberships. Exactly one of --collective and --contact is required.

Examples:
  kin members list --collective <family-id>
  kin members list --contact alice --active`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(deps *Deps) error {
				memberships, err := deps.Memberships.HandleList(cmd.Context(), handlers.MemberListOptions{
					CollectiveID: flags.collective,
					ContactID:    flags.contact,
					ActiveOnly:   flags.active,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(memberships) == 0 {
					fmt.Fprintln(out, "No memberships found.")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCOLLECTIVE\tCONTACT\tROLE\tSTATUS")
				for _, m := range memberships {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.CollectiveID, m.ContactID, roleKey(m.RoleID), membershipStatus(m))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&flags.collective, "collective", "", "List members of this collective")
	cmd.Flags().StringVar(&flags.contact, "contact", "", "List collectives this contact belongs to")
	cmd.Flags().BoolVar(&flags.active, "active", false, "Only active memberships")
	cmd.MarkFlagsMutuallyExclusive("collective", "contact")
	cmd.MarkFlagsOneRequired("collective", "contact")

	return cmd
}

func membershipStatus(m entities.Membership) string {
	if m.IsActive {
		return "active"
	}
	if m.InactiveReason != "" {
		return "inactive (" + m.InactiveReason + ")"
	}
	return "inactive"
}

// printEdges writes one line per edge: "from -[type]-> to".
func printEdges(w io.Writer, edges []entities.Relationship) {
	for _, r := range edges {
		fmt.Fprintf(w, "  %s -[%s]-> %s\n", r.FromContactID, r.RelationshipTypeID, r.ToContactID)
	}
}
