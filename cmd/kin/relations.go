package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/kin-core/internal/application/handlers"
)

type relationsFlags struct {
	relType  string
	category string
	source   string
	format   string
}

func newRelationsCmd() *cobra.Command {
	var flags relationsFlags

	cmd := &cobra.Command{
		Use:   "relations <contact-id>",
		Short: "List relationships for a contact",
		Long: `Shows the relationships leaving a contact, with optional filtering.

Examples:
  kin relations alice
  kin relations alice --category family
  kin relations alice --source derived --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelations(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.relType, "type", "", "Filter by relationship type")
	cmd.Flags().StringVar(&flags.category, "category", "", "Filter by category ("+handlers.CategoryNames()+")")
	cmd.Flags().StringVar(&flags.source, "source", handlers.SourceAll, "Filter by source: all, manual, derived")
	cmd.Flags().StringVar(&flags.format, "format", formatTree, "Output format: tree, list, json")

	return cmd
}

func runRelations(cmd *cobra.Command, contactID string, flags relationsFlags) error {
	switch flags.format {
	case formatTree, formatList, formatJSON:
	default:
		return fmt.Errorf("invalid format: %s (valid: %s, %s, %s)", flags.format, formatTree, formatList, formatJSON)
	}

	return withDeps(cmd.Context(), func(deps *Deps) error {
		result, err := deps.Relationships.HandleList(cmd.Context(), contactID, handlers.ListOptions{
			Type:     flags.relType,
			Category: flags.category,
			Source:   flags.source,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flags.format == formatJSON {
			return printJSON(out, result)
		}
		if len(result.Relationships) == 0 {
			fmt.Fprintf(out, "No relationships found for contact: %s\n", contactID)
			return nil
		}
		if flags.format == formatList {
			printRelationsList(out, result)
			return nil
		}
		printRelationsTree(out, result)
		return nil
	})
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printRelationsList(w io.Writer, result *handlers.ListResult) {
	fmt.Fprintf(w, "Relationships for %s:\n", result.ContactID)
	fmt.Fprintln(w, strings.Repeat("-", 60))

	for _, info := range result.Relationships {
		rel := info.Relationship
		fmt.Fprintf(w, "%s -> [%s] -> %s  %s  %s\n",
			rel.FromContactID,
			info.Label,
			rel.ToContactID,
			sourceLabel(info),
			rel.ID,
		)
	}
}

func printRelationsTree(w io.Writer, result *handlers.ListResult) {
	fmt.Fprintf(w, "%s\n", result.ContactID)

	for i, info := range result.Relationships {
		rel := info.Relationship

		prefix := "+-"
		if i == len(result.Relationships)-1 {
			prefix = "\\-"
		}

		line := fmt.Sprintf("%s %s of %s %s", prefix, info.Label, rel.ToContactID, sourceLabel(info))
		if rel.Notes != nil && *rel.Notes != "" {
			line += fmt.Sprintf(" - %q", *rel.Notes)
		}
		fmt.Fprintln(w, line)
	}
}

func sourceLabel(info handlers.RelationshipInfo) string {
	if info.Derived {
		return "(derived)"
	}
	return "(manual)"
}
