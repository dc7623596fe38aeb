package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/ports"
	"github.com/ersonp/kin-core/internal/domain/services"
	"github.com/ersonp/kin-core/internal/infrastructure/config"
)

var _ ports.RelationalDB = (*Repository)(nil)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: codeSerializationFailure}, want: entities.ErrConflict},
		{name: "deadlock", err: &pgconn.PgError{Code: codeDeadlockDetected}, want: entities.ErrConflict},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, want: entities.ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err), tt.want)
		})
	}

	plain := errors.New("syntax error")
	assert.Equal(t, plain, classify(plain))
	assert.NoError(t, classify(nil))
}

func TestEdgeError(t *testing.T) {
	assert.ErrorIs(t, edgeError("op", &pgconn.PgError{Code: codeUniqueViolation}), entities.ErrRelationshipExists)
	assert.ErrorIs(t, edgeError("op", &pgconn.PgError{Code: codeCheckViolation}), entities.ErrInvalidSelfRelationship)
}

func TestNewRepository_RequiresDSN(t *testing.T) {
	_, err := NewRepository(context.Background(), config.PostgresConfig{})
	require.Error(t, err)
}

// setupTestRepo connects to the database named by KIN_POSTGRES_DSN. Each
// test works in its own id namespace so runs can share one database.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("KIN_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("KIN_POSTGRES_DSN not set")
	}

	repo, err := NewRepository(context.Background(), config.PostgresConfig{DSN: dsn, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func newEngine(t *testing.T, repo *Repository) *services.DerivationEngine {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return services.NewEngine(repo, cat, slog.New(slog.DiscardHandler))
}

func contact(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func TestRepository_Integration_Edges(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	a, b := contact("a"), contact("b")
	source := uuid.NewString()
	rel := &entities.Relationship{
		ID: uuid.NewString(), FromContactID: a, ToContactID: b,
		RelationshipTypeID: "sibling", SourceMembershipID: &source, CreatedAt: time.Now(),
	}

	stored, err := repo.UpsertRelationship(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, rel.ID, stored.ID)

	other := uuid.NewString()
	again := *rel
	again.ID = uuid.NewString()
	again.SourceMembershipID = &other
	stored, err = repo.UpsertRelationship(ctx, &again)
	require.NoError(t, err)
	assert.Equal(t, rel.ID, stored.ID)
	assert.Equal(t, other, *stored.SourceMembershipID)

	err = repo.InsertRelationship(ctx, &again)
	require.ErrorIs(t, err, entities.ErrRelationshipExists)

	self := *rel
	self.ID = uuid.NewString()
	self.ToContactID = a
	err = repo.InsertRelationship(ctx, &self)
	require.ErrorIs(t, err, entities.ErrInvalidSelfRelationship)

	n, err := repo.DeleteRelationshipsByMembership(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	manual := &entities.Relationship{
		ID: uuid.NewString(), FromContactID: a, ToContactID: b,
		RelationshipTypeID: "parent", CreatedAt: time.Now(),
	}
	_, err = repo.UpsertRelationship(ctx, manual)
	require.NoError(t, err)
	restamp := *manual
	restamp.ID = uuid.NewString()
	restamp.SourceMembershipID = &source
	stored, err = repo.UpsertRelationship(ctx, &restamp)
	require.NoError(t, err)
	assert.Equal(t, manual.ID, stored.ID)
	assert.True(t, stored.IsManual(), "derivation never takes over a manual edge")
}

func TestRepository_Integration_Engine(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	e := newEngine(t, repo)

	family, err := e.Collectives().Create(ctx, "user-"+uuid.NewString(), entities.CollectiveFamily, "Smiths")
	require.NoError(t, err)

	mom := contact("mom")
	_, err = e.DeriveOnMembershipAdd(ctx, services.AddMembershipParams{
		CollectiveID: family.ID, ContactID: mom, RoleID: entities.RoleID(entities.CollectiveFamily, "parent"),
	})
	require.NoError(t, err)

	// concurrent adds of distinct children must each see the others
	kids := []string{contact("kid"), contact("kid"), contact("kid")}
	var wg sync.WaitGroup
	errs := make([]error, len(kids))
	for i, kid := range kids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.DeriveOnMembershipAdd(ctx, services.AddMembershipParams{
				CollectiveID: family.ID, ContactID: kid, RoleID: entities.RoleID(entities.CollectiveFamily, "child"),
			})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	for _, kid := range kids {
		exists, err := repo.RelationshipExists(ctx, mom, kid, "parent")
		require.NoError(t, err)
		assert.True(t, exists)
		for _, sib := range kids {
			if sib == kid {
				continue
			}
			exists, err := repo.RelationshipExists(ctx, kid, sib, "sibling")
			require.NoError(t, err)
			assert.True(t, exists, "%s should be sibling of %s", kid, sib)
		}
	}

	_, err = e.DeriveOnMembershipAdd(ctx, services.AddMembershipParams{
		CollectiveID: family.ID, ContactID: kids[0], RoleID: entities.RoleID(entities.CollectiveFamily, "child"),
	})
	require.ErrorIs(t, err, entities.ErrDuplicateActiveMembership)

	memberships, err := e.ListMembershipsOf(ctx, family.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 4)
	for _, m := range memberships {
		require.NoError(t, e.CleanupOnMembershipRemove(ctx, m.ID))
	}
	for _, kid := range kids {
		from, err := repo.FindRelationshipsFrom(ctx, kid)
		require.NoError(t, err)
		assert.Empty(t, from)
	}
}
