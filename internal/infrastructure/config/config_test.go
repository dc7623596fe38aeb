package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(".kin", "kin.db"), cfg.SQLite.Path)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestConfigDir(t *testing.T) {
	result := ConfigDir("/home/user/project")
	assert.Equal(t, "/home/user/project/.kin", result)
}

func TestConfigFilePath(t *testing.T) {
	result := ConfigFilePath("/home/user/project")
	assert.Equal(t, "/home/user/project/.kin/config.yaml", result)
}

func TestLoad(t *testing.T) {
	t.Run("missing config", func(t *testing.T) {
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kin init")
	})

	t.Run("default file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, WriteDefault(dir))
		assert.True(t, Exists(dir))

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
		assert.Equal(t, filepath.Join(dir, ".kin", "kin.db"), cfg.SQLitePath(dir))

		require.Error(t, WriteDefault(dir), "second write must not clobber the file")
	})

	t.Run("env overrides file", func(t *testing.T) {
		dir := t.TempDir()
		cfg := Default()
		cfg.Storage.Driver = DriverPostgres
		cfg.Postgres.DSN = "postgres://file"
		require.NoError(t, Write(dir, cfg))

		t.Setenv("KIN_POSTGRES_DSN", "postgres://env")
		t.Setenv("LOG_LEVEL", "debug")

		loaded, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "postgres://env", loaded.Postgres.DSN)
		assert.Equal(t, "debug", loaded.Log.Level)
		assert.Equal(t, "text", loaded.Log.Format)
	})

	t.Run("invalid driver", func(t *testing.T) {
		dir := t.TempDir()
		cfg := Default()
		cfg.Storage.Driver = "mongo"
		require.NoError(t, Write(dir, cfg))

		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown storage driver")
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		dir := t.TempDir()
		cfg := Default()
		cfg.Storage.Driver = DriverPostgres
		require.NoError(t, Write(dir, cfg))

		_, err := Load(dir)
		require.Error(t, err)
	})
}

func TestSQLitePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "relative", path: "data/kin.db", want: "/base/data/kin.db"},
		{name: "absolute", path: "/var/lib/kin.db", want: "/var/lib/kin.db"},
		{name: "memory", path: ":memory:", want: ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.SQLite.Path = tt.path
			assert.Equal(t, tt.want, cfg.SQLitePath("/base"))
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	t.Run("built-in when no file", func(t *testing.T) {
		cat, err := LoadCatalog(t.TempDir(), Default())
		require.NoError(t, err)
		assert.Len(t, cat.Types.All(), len(entities.DefaultRelationshipTypes))
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		cfg := Default()
		cfg.Catalog.Path = "missing.yaml"
		_, err := LoadCatalog(t.TempDir(), cfg)
		require.Error(t, err)
	})

	t.Run("written catalog loads back", func(t *testing.T) {
		dir := t.TempDir()
		path, err := WriteCatalog(dir)
		require.NoError(t, err)
		assert.Equal(t, CatalogFilePath(dir), path)

		cat, err := LoadCatalog(dir, Default())
		require.NoError(t, err)

		rule, ok := cat.Roles.RuleFor(entities.CollectiveFamily,
			entities.RoleID(entities.CollectiveFamily, "child"),
			entities.RoleID(entities.CollectiveFamily, "parent"))
		require.True(t, ok)
		assert.Equal(t, "parent", rule.RelationshipTypeID)
		assert.Equal(t, entities.DirectionExistingMember, rule.Direction)

		_, err = WriteCatalog(dir)
		require.Error(t, err)
	})

	t.Run("private collective type", func(t *testing.T) {
		dir := t.TempDir()
		content := `relationship_types:
  - id: teammate
    category: social
    label: Teammate
    inverse: teammate
collective_types:
  - id: band
    name: Band
    user_id: user-1
    roles:
      - key: musician
        label: Musician
        sort_order: 1
    rules:
      - new: musician
        existing: musician
        type: teammate
        direction: both
`
		require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
		require.NoError(t, os.WriteFile(CatalogFilePath(dir), []byte(content), 0644))

		cat, err := LoadCatalog(dir, Default())
		require.NoError(t, err)
		assert.Len(t, cat.Roles.TypesVisibleTo("user-1"), 1)
		assert.Empty(t, cat.Roles.TypesVisibleTo("user-2"))
	})

	t.Run("asymmetric inverse rejected", func(t *testing.T) {
		dir := t.TempDir()
		content := `relationship_types:
  - id: parent
    category: family
    label: Parent
    inverse: child
  - id: child
    category: family
    label: Child
    inverse: child
`
		require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
		require.NoError(t, os.WriteFile(CatalogFilePath(dir), []byte(content), 0644))

		_, err := LoadCatalog(dir, Default())
		require.ErrorIs(t, err, entities.ErrRuleCatalogInconsistency)
	})
}
