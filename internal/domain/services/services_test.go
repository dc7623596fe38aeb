package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/mocks"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestEngine wires an engine over the in-memory store and the default
// catalog.
func newTestEngine(t *testing.T) (*DerivationEngine, *mocks.RelationalDB) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	db := mocks.NewRelationalDB()
	return NewEngine(db, cat, testLogger()), db
}

func familyRole(key string) string {
	return entities.RoleID(entities.CollectiveFamily, key)
}

func createCollective(t *testing.T, e *DerivationEngine, typeID, name string) *entities.Collective {
	t.Helper()
	c, err := e.Collectives().Create(context.Background(), testUser, typeID, name)
	require.NoError(t, err)
	return c
}

func addMember(t *testing.T, e *DerivationEngine, collectiveID, contactID, roleID string) *entities.Membership {
	t.Helper()
	m, err := e.DeriveOnMembershipAdd(context.Background(), AddMembershipParams{
		CollectiveID: collectiveID,
		ContactID:    contactID,
		RoleID:       roleID,
	})
	require.NoError(t, err)
	return m
}

func strPtr(s string) *string {
	return &s
}

func mustTypes(t *testing.T, types []entities.RelationshipType) *catalog.RelationshipTypes {
	t.Helper()
	rt, err := catalog.NewRelationshipTypes(types)
	require.NoError(t, err)
	return rt
}
