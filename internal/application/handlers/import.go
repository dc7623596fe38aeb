package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/infrastructure/parsers"
)

// Conflict strategies for import.
const (
	ConflictSkip = "skip" // count duplicates as skipped
	ConflictFail = "fail" // report duplicates as errors
)

// ImportHandler bulk-loads memberships and manual relationships from a file.
// Each record is applied in its own transaction, so a bad row does not undo
// the rows before it.
type ImportHandler struct {
	memberships   *MembershipHandler
	relationships *RelationshipHandler
}

// NewImportHandler creates a new import handler.
func NewImportHandler(memberships *MembershipHandler, relationships *RelationshipHandler) *ImportHandler {
	return &ImportHandler{
		memberships:   memberships,
		relationships: relationships,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format     string // "json", "csv", or "auto"
	DryRun     bool   // Validate without saving
	OnConflict string // skip or fail (empty = skip)
}

// ImportError is a record that could not be applied.
type ImportError struct {
	Line int
	Err  error
}

func (e ImportError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e ImportError) Unwrap() error {
	return e.Err
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Memberships   int
	Relationships int
	Derived       int // edges derived by imported memberships
	Skipped       int
	Errors        []ImportError
}

// Handle imports records from a file.
func (h *ImportHandler) Handle(ctx context.Context, filePath string, opts ImportOptions) (*ImportResult, error) {
	onConflict := opts.OnConflict
	if onConflict == "" {
		onConflict = ConflictSkip
	}
	if onConflict != ConflictSkip && onConflict != ConflictFail {
		return nil, fmt.Errorf("%w: invalid on-conflict value %q (valid: %s, %s)",
			entities.ErrInvalidInput, onConflict, ConflictSkip, ConflictFail)
	}

	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}
	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	records, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	result := &ImportResult{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := h.apply(ctx, rec, opts.DryRun, result)
		switch {
		case err == nil:
		case onConflict == ConflictSkip && isDuplicate(err):
			result.Skipped++
		case errors.Is(err, entities.ErrStorageUnavailable):
			// Later rows would fail the same way
			return result, fmt.Errorf("line %d: %w", rec.LineNum, err)
		default:
			result.Errors = append(result.Errors, ImportError{Line: rec.LineNum, Err: err})
		}
	}

	return result, nil
}

func (h *ImportHandler) apply(ctx context.Context, rec parsers.RawRecord, dryRun bool, result *ImportResult) error {
	switch rec.Kind {
	case parsers.KindMembership:
		if rec.Collective == "" || rec.Contact == "" || rec.Role == "" {
			return fmt.Errorf("%w: membership needs collective, contact and role", entities.ErrInvalidInput)
		}
		if _, err := parseDate(rec.Joined); err != nil {
			return err
		}
		if dryRun {
			result.Memberships++
			return nil
		}

		added, err := h.memberships.HandleAdd(ctx, AddRequest{
			CollectiveID: rec.Collective,
			ContactID:    rec.Contact,
			Role:         rec.Role,
			JoinedDate:   rec.Joined,
			Notes:        rec.Notes,
		})
		if err != nil {
			return err
		}
		result.Memberships++
		result.Derived += len(added.Derived)
		return nil

	case parsers.KindRelationship:
		if rec.From == "" || rec.Type == "" || rec.To == "" {
			return fmt.Errorf("%w: relationship needs from, type and to", entities.ErrInvalidInput)
		}
		if dryRun {
			if _, err := h.relationships.parseType(rec.Type); err != nil {
				return err
			}
			if rec.From == rec.To {
				return entities.ErrInvalidSelfRelationship
			}
			result.Relationships++
			return nil
		}

		if _, err := h.relationships.HandleCreate(ctx, rec.From, rec.Type, rec.To, rec.Notes); err != nil {
			return err
		}
		result.Relationships++
		return nil

	default:
		return fmt.Errorf("%w: unknown kind %q (valid: %s, %s)",
			entities.ErrInvalidInput, rec.Kind, parsers.KindMembership, parsers.KindRelationship)
	}
}

func isDuplicate(err error) bool {
	return errors.Is(err, entities.ErrDuplicateActiveMembership) || errors.Is(err, entities.ErrRelationshipExists)
}
