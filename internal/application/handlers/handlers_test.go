package handlers

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/mocks"
	"github.com/ersonp/kin-core/internal/domain/ports"
	"github.com/ersonp/kin-core/internal/domain/services"
	"github.com/ersonp/kin-core/internal/infrastructure/config"
)

const testUser = "user-1"

func newTestEngine(t *testing.T) (*services.DerivationEngine, *mocks.RelationalDB) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	db := mocks.NewRelationalDB()
	return services.NewEngine(db, cat, slog.New(slog.DiscardHandler)), db
}

// newFamily creates a family collective with a parent and a child.
func newFamily(t *testing.T, e *services.DerivationEngine) (*entities.Collective, *AddResult) {
	t.Helper()
	family, err := NewCollectiveHandler(e, testUser).HandleCreate(t.Context(), entities.CollectiveFamily, "Smiths")
	require.NoError(t, err)

	members := NewMembershipHandler(e)
	_, err = members.HandleAdd(t.Context(), AddRequest{CollectiveID: family.ID, ContactID: "mom", Role: "parent"})
	require.NoError(t, err)
	kid, err := members.HandleAdd(t.Context(), AddRequest{CollectiveID: family.ID, ContactID: "kid", Role: "child"})
	require.NoError(t, err)
	return family, kid
}

func strPtr(s string) *string {
	return &s
}

func TestRelationshipHandler_Create(t *testing.T) {
	e, db := newTestEngine(t)
	h := NewRelationshipHandler(e)

	pair, err := h.HandleCreate(t.Context(), "alice", " Mentor ", "bob", "since 2019")
	require.NoError(t, err)
	assert.Equal(t, "mentor", pair.Relationship.RelationshipTypeID)
	require.NotNil(t, pair.Inverse)
	assert.Equal(t, "mentee", pair.Inverse.RelationshipTypeID)
	assert.Equal(t, "bob", pair.Inverse.FromContactID)
	assert.Len(t, db.Relationships, 2)

	_, err = h.HandleCreate(t.Context(), "alice", "nemesis", "bob", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.Contains(t, err.Error(), "invalid relationship type")

	_, err = h.HandleCreate(t.Context(), "alice", "friend", "alice", "")
	require.ErrorIs(t, err, entities.ErrInvalidSelfRelationship)
}

func TestRelationshipHandler_List(t *testing.T) {
	e, _ := newTestEngine(t)
	h := NewRelationshipHandler(e)
	newFamily(t, e)

	_, err := h.HandleCreate(t.Context(), "mom", "friend", "neighbor-joe", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		opts  ListOptions
		types []string
	}{
		{name: "all", opts: ListOptions{}, types: []string{"friend", "parent"}},
		{name: "manual", opts: ListOptions{Source: SourceManual}, types: []string{"friend"}},
		{name: "derived", opts: ListOptions{Source: SourceDerived}, types: []string{"parent"}},
		{name: "by type", opts: ListOptions{Type: "parent"}, types: []string{"parent"}},
		{name: "by category", opts: ListOptions{Category: string(entities.CategorySocial)}, types: []string{"friend"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleList(t.Context(), "mom", tt.opts)
			require.NoError(t, err)

			got := make([]string, 0, len(result.Relationships))
			for _, info := range result.Relationships {
				got = append(got, info.Relationship.RelationshipTypeID)
				assert.Equal(t, info.Derived, !info.Relationship.IsManual())
			}
			assert.ElementsMatch(t, tt.types, got)
		})
	}

	t.Run("labels resolved", func(t *testing.T) {
		result, err := h.HandleList(t.Context(), "mom", ListOptions{Type: "parent"})
		require.NoError(t, err)
		require.Len(t, result.Relationships, 1)
		assert.Equal(t, "Parent", result.Relationships[0].Label)
		assert.Equal(t, entities.CategoryFamily, result.Relationships[0].Category)
	})

	t.Run("invalid source", func(t *testing.T) {
		_, err := h.HandleList(t.Context(), "mom", ListOptions{Source: "imported"})
		require.ErrorIs(t, err, entities.ErrInvalidInput)
	})
}

func TestRelationshipHandler_UpdateDelete(t *testing.T) {
	e, db := newTestEngine(t)
	h := NewRelationshipHandler(e)

	pair, err := h.HandleCreate(t.Context(), "alice", "friend", "bob", "")
	require.NoError(t, err)

	_, err = h.HandleUpdate(t.Context(), pair.Relationship.ID, UpdateOptions{})
	require.ErrorIs(t, err, entities.ErrInvalidInput)

	updated, err := h.HandleUpdate(t.Context(), pair.Relationship.ID, UpdateOptions{Notes: strPtr("college")})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "college", *updated.Notes)

	_, err = h.HandleUpdate(t.Context(), pair.Relationship.ID, UpdateOptions{Type: strPtr("rival")})
	require.Error(t, err)

	history, err := h.HandleHistory(t.Context(), pair.Relationship.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, history)

	require.NoError(t, h.HandleDelete(t.Context(), pair.Relationship.ID))
	assert.Empty(t, db.Relationships)
}

func TestRelationshipHandler_DeleteDerivedRefused(t *testing.T) {
	e, db := newTestEngine(t)
	_, kid := newFamily(t, e)
	require.Len(t, kid.Derived, 1)

	err := NewRelationshipHandler(e).HandleDelete(t.Context(), kid.Derived[0].ID)
	require.ErrorIs(t, err, entities.ErrDerivedRelationship)
	assert.Len(t, db.Relationships, 1)
}

func TestMembershipHandler_Add(t *testing.T) {
	e, _ := newTestEngine(t)
	family, kid := newFamily(t, e)
	h := NewMembershipHandler(e)

	assert.Equal(t, entities.RoleID(entities.CollectiveFamily, "child"), kid.Membership.RoleID)
	require.Len(t, kid.Derived, 1)
	assert.Equal(t, "mom", kid.Derived[0].FromContactID)
	assert.Equal(t, "parent", kid.Derived[0].RelationshipTypeID)

	t.Run("full role id and joined date", func(t *testing.T) {
		result, err := h.HandleAdd(t.Context(), AddRequest{
			CollectiveID: family.ID,
			ContactID:    "kid2",
			Role:         "family.child",
			JoinedDate:   "2021-03-04",
		})
		require.NoError(t, err)
		require.NotNil(t, result.Membership.JoinedDate)
		assert.Equal(t, "2021-03-04", result.Membership.JoinedDate.Format(DateLayout))
		// parent edge plus both sibling edges
		assert.Len(t, result.Derived, 3)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := h.HandleAdd(t.Context(), AddRequest{
			CollectiveID: family.ID, ContactID: "kid3", Role: "child", JoinedDate: "04/03/2021",
		})
		require.ErrorIs(t, err, entities.ErrInvalidInput)
	})

	t.Run("role of another type", func(t *testing.T) {
		_, err := h.HandleAdd(t.Context(), AddRequest{
			CollectiveID: family.ID, ContactID: "kid3", Role: "company.owner",
		})
		require.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("unknown collective", func(t *testing.T) {
		_, err := h.HandleAdd(t.Context(), AddRequest{CollectiveID: "missing", ContactID: "x", Role: "child"})
		require.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestMembershipHandler_Lifecycle(t *testing.T) {
	e, db := newTestEngine(t)
	family, kid := newFamily(t, e)
	h := NewMembershipHandler(e)
	id := kid.Membership.ID

	m, err := h.HandleDeactivate(t.Context(), id, "moved out", "2024-06-01")
	require.NoError(t, err)
	assert.False(t, m.IsActive)
	assert.Equal(t, "2024-06-01", m.InactiveDate.Format(DateLayout))
	assert.Len(t, db.Relationships, 1, "deactivation keeps derived edges")

	active, err := h.HandleList(t.Context(), MemberListOptions{CollectiveID: family.ID, ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	m, written, err := h.HandleReactivate(t.Context(), id, true)
	require.NoError(t, err)
	assert.True(t, m.IsActive)
	assert.Equal(t, 1, written)

	written, err = h.HandleReapply(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Len(t, db.Relationships, 1)

	require.NoError(t, h.HandleRemove(t.Context(), id))
	assert.Empty(t, db.Relationships)

	byContact, err := h.HandleList(t.Context(), MemberListOptions{ContactID: "kid"})
	require.NoError(t, err)
	assert.Empty(t, byContact)

	_, err = h.HandleList(t.Context(), MemberListOptions{})
	require.ErrorIs(t, err, entities.ErrInvalidInput)
}

func TestCollectiveHandler(t *testing.T) {
	e, _ := newTestEngine(t)
	h := NewCollectiveHandler(e, testUser)

	c, err := h.HandleCreate(t.Context(), entities.CollectiveClub, "Chess club")
	require.NoError(t, err)

	_, err = h.HandleCreate(t.Context(), "guild", "Guild")
	require.ErrorIs(t, err, entities.ErrNotFound)

	renamed, err := h.HandleRename(t.Context(), c.ID, "Chess & Go club")
	require.NoError(t, err)
	assert.Equal(t, "Chess & Go club", renamed.Name)

	list, err := h.HandleList(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, h.HandleDelete(t.Context(), c.ID))
	list, err = h.HandleList(t.Context())
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Len(t, h.HandleTypes(), len(entities.DefaultCollectiveTypes))

	ct, err := h.HandleDescribeType(entities.CollectiveCompany)
	require.NoError(t, err)
	assert.Len(t, ct.Roles, 3)

	_, err = h.HandleDescribeType("guild")
	require.ErrorIs(t, err, entities.ErrNotFound)
}

func TestContactHandler_HandleDetail(t *testing.T) {
	e, _ := newTestEngine(t)
	family, _ := newFamily(t, e)

	club, err := NewCollectiveHandler(e, testUser).HandleCreate(t.Context(), entities.CollectiveClub, "Book club")
	require.NoError(t, err)
	_, err = NewMembershipHandler(e).HandleAdd(t.Context(), AddRequest{CollectiveID: club.ID, ContactID: "mom", Role: "organizer"})
	require.NoError(t, err)
	require.NoError(t, NewCollectiveHandler(e, testUser).HandleDelete(t.Context(), club.ID))

	detail, err := NewContactHandler(e).HandleDetail(t.Context(), "mom")
	require.NoError(t, err)
	assert.Equal(t, "mom", detail.ContactID)
	require.Len(t, detail.Relationships, 1)
	assert.Equal(t, "parent", detail.Relationships[0].Relationship.RelationshipTypeID)

	require.Len(t, detail.Memberships, 2)
	labels := map[string]string{}
	for _, info := range detail.Memberships {
		if info.Collective == nil {
			labels["deleted"] = info.RoleLabel
			continue
		}
		assert.Equal(t, family.ID, info.Collective.ID)
		labels["family"] = info.RoleLabel
	}
	assert.Equal(t, map[string]string{"family": "Parent", "deleted": "organizer"}, labels)
}

func TestContactHandler_HandleDetail_StoreError(t *testing.T) {
	e, db := newTestEngine(t)
	db.Err = entities.ErrStorageUnavailable

	_, err := NewContactHandler(e).HandleDetail(t.Context(), "mom")
	require.ErrorIs(t, err, entities.ErrStorageUnavailable)
}

func TestTypesHandler(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	h := NewTypesHandler(cat)

	all, err := h.HandleList("")
	require.NoError(t, err)
	assert.Len(t, all, len(entities.DefaultRelationshipTypes))

	social, err := h.HandleList(string(entities.CategorySocial))
	require.NoError(t, err)
	for _, typ := range social {
		assert.Equal(t, entities.CategorySocial, typ.Category)
	}

	_, err = h.HandleList("legal")
	require.ErrorIs(t, err, entities.ErrInvalidInput)
	assert.Contains(t, err.Error(), CategoryNames())
	assert.Equal(t, "family, professional, social", CategoryNames())

	inv, ok, err := h.HandleInverse("manager")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "report", inv.ID)
}

func TestInitHandler_Handle(t *testing.T) {
	mockOpener := func(db *mocks.RelationalDB, opened *int) StoreOpener {
		return func(_ context.Context, _ string, _ *config.Config) (ports.RelationalDB, error) {
			*opened++
			return db, nil
		}
	}

	t.Run("success", func(t *testing.T) {
		dir := t.TempDir()
		opened := 0
		h := NewInitHandler(mockOpener(mocks.NewRelationalDB(), &opened))

		result, err := h.Handle(t.Context(), dir, InitOptions{WriteCatalog: true})
		require.NoError(t, err)
		assert.Equal(t, config.ConfigFilePath(dir), result.ConfigPath)
		assert.Equal(t, config.CatalogFilePath(dir), result.CatalogPath)
		assert.Equal(t, config.DriverSQLite, result.Driver)
		assert.Equal(t, 1, opened)
		assert.True(t, config.Exists(dir))
	})

	t.Run("already initialized", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, config.WriteDefault(dir))

		opened := 0
		_, err := NewInitHandler(mockOpener(mocks.NewRelationalDB(), &opened)).Handle(t.Context(), dir, InitOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already initialized")
		assert.Zero(t, opened)
	})

	t.Run("schema error", func(t *testing.T) {
		db := mocks.NewRelationalDB()
		db.Err = errors.New("disk full")
		opened := 0

		_, err := NewInitHandler(mockOpener(db, &opened)).Handle(t.Context(), t.TempDir(), InitOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "creating schema")
	})
}
