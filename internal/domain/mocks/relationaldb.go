// Package mocks provides in-memory implementations of the domain ports for
// tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

type txKey struct{}

// RelationalDB is an in-memory implementation of ports.RelationalDB.
// Transactions are serialized and roll back by restoring a snapshot.
type RelationalDB struct {
	Relationships map[string]entities.Relationship
	Memberships   map[string]entities.Membership
	Collectives   map[string]entities.Collective
	Audit         []entities.AuditEntry

	// Err, when set, is returned by every store method.
	Err error
	// InsertRelationshipHook runs before each InsertRelationship; a non-nil
	// result aborts the insert.
	InsertRelationshipHook func(rel *entities.Relationship) error
	// UpsertRelationshipHook does the same for UpsertRelationship.
	UpsertRelationshipHook func(rel *entities.Relationship) error

	// Commits counts committed outermost transactions.
	Commits int

	mu   sync.Mutex
	txMu sync.Mutex
}

// NewRelationalDB creates a new mock RelationalDB.
func NewRelationalDB() *RelationalDB {
	return &RelationalDB{
		Relationships: make(map[string]entities.Relationship),
		Memberships:   make(map[string]entities.Membership),
		Collectives:   make(map[string]entities.Collective),
	}
}

// EnsureSchema creates the database schema if it doesn't exist.
func (m *RelationalDB) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close closes the database connection.
func (m *RelationalDB) Close() error {
	return nil
}

type snapshot struct {
	relationships map[string]entities.Relationship
	memberships   map[string]entities.Membership
	collectives   map[string]entities.Collective
	audit         []entities.AuditEntry
}

func (m *RelationalDB) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := snapshot{
		relationships: make(map[string]entities.Relationship, len(m.Relationships)),
		memberships:   make(map[string]entities.Membership, len(m.Memberships)),
		collectives:   make(map[string]entities.Collective, len(m.Collectives)),
		audit:         append([]entities.AuditEntry(nil), m.Audit...),
	}
	for k, v := range m.Relationships {
		s.relationships[k] = v
	}
	for k, v := range m.Memberships {
		s.memberships[k] = v
	}
	for k, v := range m.Collectives {
		s.collectives[k] = v
	}
	return s
}

func (m *RelationalDB) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Relationships = s.relationships
	m.Memberships = s.memberships
	m.Collectives = s.collectives
	m.Audit = s.audit
}

// RunInTx runs fn atomically. Nested calls join the outer transaction.
func (m *RelationalDB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	if m.Err != nil {
		return m.Err
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	m.Commits++
	return nil
}

// Relationship methods.

func (m *RelationalDB) findTripleLocked(from, to, typeID string) (entities.Relationship, bool) {
	for _, rel := range m.Relationships {
		if rel.FromContactID == from && rel.ToContactID == to && rel.RelationshipTypeID == typeID {
			return rel, true
		}
	}
	return entities.Relationship{}, false
}

func checkEdge(rel *entities.Relationship) error {
	if rel.FromContactID == rel.ToContactID {
		return fmt.Errorf("saving relationship: %w", entities.ErrInvalidSelfRelationship)
	}
	return nil
}

// UpsertRelationship inserts rel or updates the edge sharing its triple.
func (m *RelationalDB) UpsertRelationship(_ context.Context, rel *entities.Relationship) (*entities.Relationship, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if err := checkEdge(rel); err != nil {
		return nil, err
	}
	if m.UpsertRelationshipHook != nil {
		if err := m.UpsertRelationshipHook(rel); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.findTripleLocked(rel.FromContactID, rel.ToContactID, rel.RelationshipTypeID)
	if !ok {
		stored := *rel
		m.Relationships[stored.ID] = stored
		return &stored, nil
	}
	if !existing.IsManual() {
		existing.SourceMembershipID = rel.SourceMembershipID
	}
	if rel.Notes != nil {
		existing.Notes = rel.Notes
	}
	m.Relationships[existing.ID] = existing
	return &existing, nil
}

// InsertRelationship inserts rel, failing on a taken triple.
func (m *RelationalDB) InsertRelationship(_ context.Context, rel *entities.Relationship) error {
	if m.Err != nil {
		return m.Err
	}
	if err := checkEdge(rel); err != nil {
		return err
	}
	if m.InsertRelationshipHook != nil {
		if err := m.InsertRelationshipHook(rel); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.findTripleLocked(rel.FromContactID, rel.ToContactID, rel.RelationshipTypeID); ok {
		return fmt.Errorf("inserting relationship: %w", entities.ErrRelationshipExists)
	}
	m.Relationships[rel.ID] = *rel
	return nil
}

// FindRelationship finds an edge by id.
func (m *RelationalDB) FindRelationship(_ context.Context, id string) (*entities.Relationship, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rel, ok := m.Relationships[id]
	if !ok {
		return nil, nil
	}
	return &rel, nil
}

// FindRelationshipByTriple finds the edge with the given endpoints and type.
func (m *RelationalDB) FindRelationshipByTriple(_ context.Context, from, to, typeID string) (*entities.Relationship, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rel, ok := m.findTripleLocked(from, to, typeID)
	if !ok {
		return nil, nil
	}
	return &rel, nil
}

// RelationshipExists reports whether the triple is present.
func (m *RelationalDB) RelationshipExists(_ context.Context, from, to, typeID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.findTripleLocked(from, to, typeID)
	return ok, nil
}

// UpdateRelationshipNotes replaces the notes of an edge.
func (m *RelationalDB) UpdateRelationshipNotes(_ context.Context, id string, notes *string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rel, ok := m.Relationships[id]
	if !ok {
		return fmt.Errorf("relationship %s: %w", id, entities.ErrNotFound)
	}
	rel.Notes = notes
	m.Relationships[id] = rel
	return nil
}

// DeleteRelationship deletes an edge by id.
func (m *RelationalDB) DeleteRelationship(_ context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Relationships[id]; !ok {
		return fmt.Errorf("relationship %s: %w", id, entities.ErrNotFound)
	}
	delete(m.Relationships, id)
	return nil
}

// DeleteRelationshipsByMembership deletes every edge stamped with the membership.
func (m *RelationalDB) DeleteRelationshipsByMembership(_ context.Context, membershipID string) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, rel := range m.Relationships {
		if rel.DerivedFrom(membershipID) {
			delete(m.Relationships, id)
			count++
		}
	}
	return count, nil
}

// FindRelationshipsFrom lists edges leaving a contact, newest first.
func (m *RelationalDB) FindRelationshipsFrom(_ context.Context, contactID string) ([]entities.Relationship, error) {
	return m.filterRelationships(func(rel entities.Relationship) bool {
		return rel.FromContactID == contactID
	})
}

// FindRelationshipsByMembership lists edges stamped with the membership.
func (m *RelationalDB) FindRelationshipsByMembership(_ context.Context, membershipID string) ([]entities.Relationship, error) {
	return m.filterRelationships(func(rel entities.Relationship) bool {
		return rel.DerivedFrom(membershipID)
	})
}

func (m *RelationalDB) filterRelationships(keep func(entities.Relationship) bool) ([]entities.Relationship, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]entities.Relationship, 0, len(m.Relationships))
	for _, rel := range m.Relationships {
		if keep(rel) {
			result = append(result, rel)
		}
	}
	// Sort for deterministic test results
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CountRelationships returns the total number of edges.
func (m *RelationalDB) CountRelationships(_ context.Context) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Relationships), nil
}

// Membership methods.

func (m *RelationalDB) activeTakenLocked(collectiveID, contactID, exceptID string) bool {
	for _, other := range m.Memberships {
		if other.ID != exceptID && other.IsActive &&
			other.CollectiveID == collectiveID && other.ContactID == contactID {
			return true
		}
	}
	return false
}

// InsertMembership inserts an active membership.
func (m *RelationalDB) InsertMembership(_ context.Context, mem *entities.Membership) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem.IsActive && m.activeTakenLocked(mem.CollectiveID, mem.ContactID, mem.ID) {
		return fmt.Errorf("inserting membership: %w", entities.ErrDuplicateActiveMembership)
	}
	m.Memberships[mem.ID] = *mem
	return nil
}

// FindMembership finds a membership by id.
func (m *RelationalDB) FindMembership(_ context.Context, id string) (*entities.Membership, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.Memberships[id]
	if !ok {
		return nil, nil
	}
	return &mem, nil
}

// FindOtherActiveMembers lists active members of a collective other than the contact.
func (m *RelationalDB) FindOtherActiveMembers(_ context.Context, collectiveID, excludingContactID string) ([]entities.MemberRef, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := make([]entities.MemberRef, 0, len(m.Memberships))
	for _, mem := range m.Memberships {
		if mem.CollectiveID == collectiveID && mem.IsActive && mem.ContactID != excludingContactID {
			refs = append(refs, entities.MemberRef{MembershipID: mem.ID, ContactID: mem.ContactID, RoleID: mem.RoleID})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].MembershipID < refs[j].MembershipID })
	return refs, nil
}

// UpdateMembershipStatus persists the active flag and inactive fields.
func (m *RelationalDB) UpdateMembershipStatus(_ context.Context, mem *entities.Membership) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Memberships[mem.ID]
	if !ok {
		return fmt.Errorf("membership %s: %w", mem.ID, entities.ErrNotFound)
	}
	if mem.IsActive && m.activeTakenLocked(stored.CollectiveID, stored.ContactID, stored.ID) {
		return fmt.Errorf("updating membership: %w", entities.ErrDuplicateActiveMembership)
	}
	stored.IsActive = mem.IsActive
	stored.InactiveReason = mem.InactiveReason
	stored.InactiveDate = mem.InactiveDate
	m.Memberships[mem.ID] = stored
	return nil
}

// DeleteMembership hard-deletes a membership.
func (m *RelationalDB) DeleteMembership(_ context.Context, id string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Memberships[id]; !ok {
		return false, nil
	}
	delete(m.Memberships, id)
	return true, nil
}

// FindMembershipsByContact lists every membership of a contact.
func (m *RelationalDB) FindMembershipsByContact(_ context.Context, contactID string) ([]entities.Membership, error) {
	return m.filterMemberships(func(mem entities.Membership) bool { return mem.ContactID == contactID })
}

// FindMembershipsByCollective lists every membership of a collective.
func (m *RelationalDB) FindMembershipsByCollective(_ context.Context, collectiveID string) ([]entities.Membership, error) {
	return m.filterMemberships(func(mem entities.Membership) bool { return mem.CollectiveID == collectiveID })
}

func (m *RelationalDB) filterMemberships(keep func(entities.Membership) bool) ([]entities.Membership, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]entities.Membership, 0, len(m.Memberships))
	for _, mem := range m.Memberships {
		if keep(mem) {
			result = append(result, mem)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Collective methods.

// SaveCollective inserts a collective or updates its name.
func (m *RelationalDB) SaveCollective(_ context.Context, c *entities.Collective) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.Collectives[c.ID]; ok {
		stored.Name = c.Name
		m.Collectives[c.ID] = stored
		return nil
	}
	m.Collectives[c.ID] = *c
	return nil
}

// FindCollective finds a collective by id.
func (m *RelationalDB) FindCollective(_ context.Context, id string) (*entities.Collective, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Collectives[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// ListCollectivesByUser lists a user's live collectives ordered by name.
func (m *RelationalDB) ListCollectivesByUser(_ context.Context, userID string) ([]entities.Collective, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]entities.Collective, 0, len(m.Collectives))
	for _, c := range m.Collectives {
		if c.UserID == userID && !c.IsDeleted() {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// SoftDeleteCollective stamps the deletion time.
func (m *RelationalDB) SoftDeleteCollective(_ context.Context, id string, at time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Collectives[id]
	if !ok || c.IsDeleted() {
		return fmt.Errorf("collective %s: %w", id, entities.ErrNotFound)
	}
	c.DeletedAt = &at
	m.Collectives[id] = c
	return nil
}

// Audit methods.

// LogAction logs an action to the audit log.
func (m *RelationalDB) LogAction(_ context.Context, action string, subjectID string, details map[string]any) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Audit = append(m.Audit, entities.AuditEntry{
		ID:        int64(len(m.Audit) + 1),
		Action:    action,
		SubjectID: subjectID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// FindAuditLog finds audit log entries for a subject, newest first.
func (m *RelationalDB) FindAuditLog(_ context.Context, subjectID string) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []entities.AuditEntry
	for i := len(m.Audit) - 1; i >= 0; i-- {
		if m.Audit[i].SubjectID == subjectID {
			entries = append(entries, m.Audit[i])
		}
	}
	return entries, nil
}
