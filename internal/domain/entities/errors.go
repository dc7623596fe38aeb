package entities

import "errors"

// Sentinel errors returned by the relationship engine. Callers match them
// with errors.Is; every layer wraps them with context.
var (
	ErrNotFound                  = errors.New("not found")
	ErrDuplicateActiveMembership = errors.New("contact already has an active membership in this collective")
	ErrInvalidSelfRelationship   = errors.New("a contact cannot be related to itself")
	ErrRuleCatalogInconsistency  = errors.New("rule catalog inconsistency")
	ErrRelationshipExists        = errors.New("relationship already exists")
	ErrDerivedRelationship       = errors.New("relationship is derived from a collective membership")
	ErrInvalidInput              = errors.New("invalid input")

	// Store-level failures. The engine never retries; callers retry the
	// whole operation.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrConflict           = errors.New("storage conflict")
)
