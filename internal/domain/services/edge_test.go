package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

func TestEdgeService_UpsertEdge(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)
	edges := e.edges

	t.Run("rejects self edge", func(t *testing.T) {
		_, err := edges.UpsertEdge(ctx, "c1", "c1", "friend", nil, nil)
		require.ErrorIs(t, err, entities.ErrInvalidSelfRelationship)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := edges.UpsertEdge(ctx, "c1", "c2", "nemesis", nil, nil)
		require.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("second write updates in place", func(t *testing.T) {
		first, err := edges.UpsertEdge(ctx, "c1", "c2", "sibling", strPtr("twins"), strPtr("m1"))
		require.NoError(t, err)

		second, err := edges.UpsertEdge(ctx, "c1", "c2", "sibling", nil, strPtr("m2"))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		require.NotNil(t, second.SourceMembershipID)
		assert.Equal(t, "m2", *second.SourceMembershipID)
		require.NotNil(t, second.Notes)
		assert.Equal(t, "twins", *second.Notes, "note is kept when none is supplied")
		assert.Len(t, db.Relationships, 1)

		third, err := edges.UpsertEdge(ctx, "c1", "c2", "sibling", strPtr("half"), strPtr("m2"))
		require.NoError(t, err)
		assert.Equal(t, "half", *third.Notes)
	})
}

func TestEngine_CreateManualRelationship(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		typeID      string
		wantInverse string
	}{
		{name: "asymmetric type", typeID: "parent", wantInverse: "child"},
		{name: "self symmetric type", typeID: "spouse", wantInverse: "spouse"},
		{name: "professional pair", typeID: "manager", wantInverse: "report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, db := newTestEngine(t)

			pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
				FromContactID: "c1", ToContactID: "c2", TypeID: tt.typeID, Notes: "met in 1999",
			})
			require.NoError(t, err)
			require.NotNil(t, pair.Inverse)

			assert.True(t, pair.Relationship.IsManual())
			assert.True(t, pair.Inverse.IsManual())
			assert.Equal(t, "c2", pair.Inverse.FromContactID)
			assert.Equal(t, "c1", pair.Inverse.ToContactID)
			assert.Equal(t, tt.wantInverse, pair.Inverse.RelationshipTypeID)
			assert.Len(t, db.Relationships, 2)

			exists, err := e.RelationshipExists(ctx, "c2", "c1", tt.wantInverse)
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}
}

func TestEngine_CreateManualRelationship_TypeWithoutInverse(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)

	noInverse := entities.RelationshipType{ID: "admirer", Category: entities.CategorySocial, Label: "Admirer"}
	types := append([]entities.RelationshipType{noInverse}, entities.DefaultRelationshipTypes...)
	e.edges.types = mustTypes(t, types)

	pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
		FromContactID: "c1", ToContactID: "c2", TypeID: "admirer",
	})
	require.NoError(t, err)
	assert.Nil(t, pair.Inverse)
	assert.Len(t, db.Relationships, 1)
}

func TestEngine_CreateManualRelationship_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("self relationship", func(t *testing.T) {
		e, db := newTestEngine(t)
		_, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c1", TypeID: "friend",
		})
		require.ErrorIs(t, err, entities.ErrInvalidSelfRelationship)
		assert.Empty(t, db.Relationships)
	})

	t.Run("unknown type", func(t *testing.T) {
		e, _ := newTestEngine(t)
		_, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "nemesis",
		})
		require.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("duplicate triple", func(t *testing.T) {
		e, db := newTestEngine(t)
		params := CreateRelationshipParams{FromContactID: "c1", ToContactID: "c2", TypeID: "friend"}
		_, err := e.CreateManualRelationship(ctx, params)
		require.NoError(t, err)

		_, err = e.CreateManualRelationship(ctx, params)
		require.ErrorIs(t, err, entities.ErrRelationshipExists)
		assert.Len(t, db.Relationships, 2)
	})

	t.Run("inverse failure rolls back primary", func(t *testing.T) {
		e, db := newTestEngine(t)
		boom := errors.New("connection reset")
		db.InsertRelationshipHook = func(rel *entities.Relationship) error {
			if rel.RelationshipTypeID == "child" {
				return boom
			}
			return nil
		}

		_, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "parent",
		})
		require.ErrorIs(t, err, boom)
		assert.Empty(t, db.Relationships)
	})

	t.Run("existing derived inverse becomes manual", func(t *testing.T) {
		e, db := newTestEngine(t)
		derived, err := e.edges.UpsertEdge(ctx, "c2", "c1", "child", strPtr("from the family"), strPtr("m1"))
		require.NoError(t, err)

		pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "parent",
		})
		require.NoError(t, err)
		assert.Equal(t, derived.ID, pair.Inverse.ID)
		assert.True(t, pair.Inverse.IsManual())
		stored := db.Relationships[derived.ID]
		assert.True(t, stored.IsManual())
		require.NotNil(t, pair.Inverse.Notes)
		assert.Equal(t, "from the family", *pair.Inverse.Notes)
		assert.Len(t, db.Relationships, 2)
	})

	t.Run("existing manual inverse is kept", func(t *testing.T) {
		e, db := newTestEngine(t)
		first, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "parent",
		})
		require.NoError(t, err)
		require.NoError(t, e.edges.DeleteManualPair(ctx, first.Relationship))
		require.Len(t, db.Relationships, 1)

		pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "parent",
		})
		require.NoError(t, err)
		assert.Equal(t, first.Inverse.ID, pair.Inverse.ID)
		assert.True(t, pair.Inverse.IsManual())
		assert.Len(t, db.Relationships, 2)
	})
}

func TestEngine_DeleteManualRelationship(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes both edges", func(t *testing.T) {
		e, db := newTestEngine(t)
		pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "mentor",
		})
		require.NoError(t, err)

		require.NoError(t, e.DeleteManualRelationship(ctx, pair.Inverse.ID))
		assert.Empty(t, db.Relationships)
	})

	t.Run("derived edge refused", func(t *testing.T) {
		e, db := newTestEngine(t)
		rel, err := e.edges.UpsertEdge(ctx, "c1", "c2", "sibling", nil, strPtr("m1"))
		require.NoError(t, err)

		err = e.DeleteManualRelationship(ctx, rel.ID)
		require.ErrorIs(t, err, entities.ErrDerivedRelationship)
		assert.Len(t, db.Relationships, 1)
	})

	t.Run("derived mirror survives", func(t *testing.T) {
		e, db := newTestEngine(t)
		pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "parent",
		})
		require.NoError(t, err)
		derived := newEdge("c2", "c1", "child", nil, strPtr("m1"))
		derived.ID = pair.Inverse.ID
		db.Relationships[derived.ID] = *derived

		require.NoError(t, e.DeleteManualRelationship(ctx, pair.Relationship.ID))
		require.Len(t, db.Relationships, 1)
		stored := db.Relationships[derived.ID]
		assert.True(t, stored.DerivedFrom("m1"))
	})

	t.Run("claimed mirror goes with the pair", func(t *testing.T) {
		e, db := newTestEngine(t)
		_, err := e.edges.UpsertEdge(ctx, "c2", "c1", "child", nil, strPtr("m1"))
		require.NoError(t, err)
		pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "parent",
		})
		require.NoError(t, err)

		require.NoError(t, e.DeleteManualRelationship(ctx, pair.Relationship.ID))
		assert.Empty(t, db.Relationships)
	})

	t.Run("unknown id", func(t *testing.T) {
		e, _ := newTestEngine(t)
		err := e.DeleteManualRelationship(ctx, "missing")
		require.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestEdgeService_DeleteManualPair(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)

	pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
		FromContactID: "c1", ToContactID: "c2", TypeID: "grandparent",
	})
	require.NoError(t, err)

	require.NoError(t, e.edges.DeleteManualPair(ctx, pair.Relationship))
	assert.NotContains(t, db.Relationships, pair.Relationship.ID)
	assert.Len(t, db.Relationships, 1, "the mirror is left to the caller")

	derived, err := e.edges.UpsertEdge(ctx, "c1", "c3", "sibling", nil, strPtr("m1"))
	require.NoError(t, err)
	err = e.edges.DeleteManualPair(ctx, derived)
	require.ErrorIs(t, err, entities.ErrDerivedRelationship)
	assert.Contains(t, db.Relationships, derived.ID)
}

func TestEngine_UpdateManualRelationship(t *testing.T) {
	ctx := context.Background()

	t.Run("notes only", func(t *testing.T) {
		e, db := newTestEngine(t)
		pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "friend",
		})
		require.NoError(t, err)

		updated, err := e.UpdateManualRelationship(ctx, pair.Relationship.ID, UpdateRelationshipParams{
			Notes: strPtr("college roommates"),
		})
		require.NoError(t, err)
		assert.Equal(t, pair.Relationship.ID, updated.ID)
		assert.Equal(t, "college roommates", *db.Relationships[updated.ID].Notes)
		assert.Nil(t, db.Relationships[pair.Inverse.ID].Notes)
	})

	t.Run("type change replaces pair", func(t *testing.T) {
		e, db := newTestEngine(t)
		pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "friend", Notes: "since school",
		})
		require.NoError(t, err)

		updated, err := e.UpdateManualRelationship(ctx, pair.Relationship.ID, UpdateRelationshipParams{
			TypeID: strPtr("mentor"),
		})
		require.NoError(t, err)
		assert.Equal(t, "mentor", updated.RelationshipTypeID)
		require.NotNil(t, updated.Notes)
		assert.Equal(t, "since school", *updated.Notes)
		assert.Len(t, db.Relationships, 2)

		exists, err := e.RelationshipExists(ctx, "c2", "c1", "mentee")
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = e.RelationshipExists(ctx, "c2", "c1", "friend")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unknown new type keeps pair", func(t *testing.T) {
		e, db := newTestEngine(t)
		pair, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
			FromContactID: "c1", ToContactID: "c2", TypeID: "friend",
		})
		require.NoError(t, err)

		_, err = e.UpdateManualRelationship(ctx, pair.Relationship.ID, UpdateRelationshipParams{
			TypeID: strPtr("nemesis"),
		})
		require.ErrorIs(t, err, entities.ErrNotFound)
		assert.Len(t, db.Relationships, 2)
	})

	t.Run("derived edge refused", func(t *testing.T) {
		e, _ := newTestEngine(t)
		rel, err := e.edges.UpsertEdge(ctx, "c1", "c2", "sibling", nil, strPtr("m1"))
		require.NoError(t, err)

		_, err = e.UpdateManualRelationship(ctx, rel.ID, UpdateRelationshipParams{Notes: strPtr("x")})
		require.ErrorIs(t, err, entities.ErrDerivedRelationship)
	})
}

func TestEngine_ListRelationshipsFor(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	family := createCollective(t, e, entities.CollectiveFamily, "Smiths")

	addMember(t, e, family.ID, "c1", familyRole("parent"))
	addMember(t, e, family.ID, "c2", familyRole("child"))
	_, err := e.CreateManualRelationship(ctx, CreateRelationshipParams{
		FromContactID: "c1", ToContactID: "c3", TypeID: "neighbor",
	})
	require.NoError(t, err)

	rels, err := e.ListRelationshipsFor(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, rels, 2)

	var manual, derived int
	for _, rel := range rels {
		assert.Equal(t, "c1", rel.FromContactID)
		if rel.IsManual() {
			manual++
		} else {
			derived++
		}
	}
	assert.Equal(t, 1, manual)
	assert.Equal(t, 1, derived)
}
