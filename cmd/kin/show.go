package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <contact-id>",
		Short: "Show a contact's memberships and relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatTree && format != formatJSON {
				return fmt.Errorf("invalid format: %s (valid: %s, %s)", format, formatTree, formatJSON)
			}

			return withDeps(cmd.Context(), func(deps *Deps) error {
				detail, err := deps.Contacts.HandleDetail(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if format == formatJSON {
					return printJSON(out, detail)
				}

				fmt.Fprintf(out, "%s\n\nCollectives:\n", detail.ContactID)
				if len(detail.Memberships) == 0 {
					fmt.Fprintln(out, "  (none)")
				}
				for _, info := range detail.Memberships {
					name := info.Membership.CollectiveID + " (deleted)"
					if info.Collective != nil {
						name = info.Collective.Name
					}
					status := ""
					if !info.Membership.IsActive {
						status = " [" + membershipStatus(info.Membership) + "]"
					}
					fmt.Fprintf(out, "  %s: %s%s\n", name, info.RoleLabel, status)
				}

				fmt.Fprintln(out, "\nRelationships:")
				if len(detail.Relationships) == 0 {
					fmt.Fprintln(out, "  (none)")
				}
				for _, info := range detail.Relationships {
					fmt.Fprintf(out, "  %s of %s %s\n", info.Label, info.Relationship.ToContactID, sourceLabel(info))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTree, "Output format: tree, json")

	return cmd
}
