// Package parsers reads membership and relationship records from bulk
// import files.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// Record kinds.
const (
	KindMembership   = "membership"
	KindRelationship = "relationship"
)

// RawRecord is one row of an import file before validation.
//
// A membership row uses Collective, Contact, Role and optionally Joined. A
// relationship row uses From, Type and To. Notes applies to both.
type RawRecord struct {
	Kind       string `json:"kind"`
	Collective string `json:"collective,omitempty"`
	Contact    string `json:"contact,omitempty"`
	Role       string `json:"role,omitempty"`
	Joined     string `json:"joined,omitempty"`
	From       string `json:"from,omitempty"`
	Type       string `json:"type,omitempty"`
	To         string `json:"to,omitempty"`
	Notes      string `json:"notes,omitempty"`
	LineNum    int    `json:"-"` // Line number in source file (set by parser)
}

// Parser defines the interface for parsing records from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawRecord, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	return ForFormat(strings.TrimPrefix(filepath.Ext(filename), "."))
}
