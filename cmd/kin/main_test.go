package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/kin-core/internal/application/handlers"
	"github.com/ersonp/kin-core/internal/infrastructure/config"
)

// runKin executes the root command in the current directory and returns stdout.
func runKin(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func setupWorkspace(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("KIN_STORAGE_DRIVER", config.DriverSQLite)
	t.Setenv("KIN_USER", "tester")

	out, err := runKin(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema ready (sqlite)")
	return dir
}

var createdID = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func TestInit(t *testing.T) {
	dir := setupWorkspace(t)

	assert.True(t, config.Exists(dir))
	assert.FileExists(t, config.ConfigFilePath(dir))

	_, err := runKin(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}

func TestInit_WritesCatalog(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("KIN_STORAGE_DRIVER", config.DriverSQLite)

	out, err := runKin(t, "init", "--catalog")
	require.NoError(t, err)
	assert.Contains(t, out, config.CatalogFilePath(dir))
	assert.FileExists(t, config.CatalogFilePath(dir))
}

func TestCommandsRequireInit(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := runKin(t, "types")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kin init")
}

func TestTypes(t *testing.T) {
	setupWorkspace(t)

	out, err := runKin(t, "types", "--category", "family")
	require.NoError(t, err)
	assert.Contains(t, out, "parent")
	assert.Contains(t, out, "child")
	assert.NotContains(t, out, "colleague")
	assert.Regexp(t, `sibling\s+family\s+Sibling\s+\(self\)`, out)

	_, err = runKin(t, "types", "--category", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "family, professional, social")
}

func TestCollectivesAndMembers(t *testing.T) {
	setupWorkspace(t)

	out, err := runKin(t, "collectives", "create", "family", "The Smiths")
	require.NoError(t, err)
	match := createdID.FindStringSubmatch(out)
	require.Len(t, match, 2, "output: %s", out)
	familyID := match[1]

	out, err = runKin(t, "collectives", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "The Smiths")

	_, err = runKin(t, "members", "add", familyID, "alice", "--role", "parent")
	require.NoError(t, err)

	out, err = runKin(t, "members", "add", familyID, "carol", "--role", "child")
	require.NoError(t, err)
	assert.Contains(t, out, "Derived 1 relationship(s)")
	assert.Contains(t, out, "alice -[parent]-> carol")

	_, err = runKin(t, "members", "add", familyID, "carol", "--role", "child")
	require.Error(t, err, "a contact holds at most one active membership per collective")

	out, err = runKin(t, "relations", "alice", "--format", "json")
	require.NoError(t, err)

	var result handlers.ListResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, "carol", result.Relationships[0].Relationship.ToContactID)
	assert.True(t, result.Relationships[0].Derived)

	out, err = runKin(t, "members", "list", "--collective", familyID)
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "carol")

	out, err = runKin(t, "show", "carol")
	require.NoError(t, err)
	assert.Contains(t, out, "The Smiths")
}

func TestRelate(t *testing.T) {
	setupWorkspace(t)

	out, err := runKin(t, "relate", "alice", "mentor", "bob", "--notes", "thesis")
	require.NoError(t, err)
	assert.Contains(t, out, "alice -[mentor]-> bob")
	assert.Contains(t, out, "bob -[mentee]-> alice")

	out, err = runKin(t, "relations", "bob", "--source", "manual", "--format", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "bob -> [")
	assert.Contains(t, out, "(manual)")

	_, err = runKin(t, "relate", "alice", "mentor", "alice")
	require.Error(t, err)

	_, err = runKin(t, "relate", "alice", "nemesis", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid relationship type")
}

func TestRelations_InvalidFormat(t *testing.T) {
	setupWorkspace(t)

	_, err := runKin(t, "relations", "alice", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestImport(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := runKin(t, "collectives", "create", "club", "Chess")
	require.NoError(t, err)
	match := createdID.FindStringSubmatch(out)
	require.Len(t, match, 2, "output: %s", out)
	clubID := match[1]

	path := filepath.Join(dir, "club.csv")
	content := "kind,collective,contact,role,from,type,to\n" +
		"membership," + clubID + ",ann,organizer,,,\n" +
		"membership," + clubID + ",ben,member,,,\n" +
		"relationship,,,,ann,friend,ben\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	out, err = runKin(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 membership(s), 1 relationship(s), 2 derived")

	out, err = runKin(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 skipped")

	out, err = runKin(t, "relations", "ben", "--category", "social", "--format", "json")
	require.NoError(t, err)
	var result handlers.ListResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Relationships, 2, "ben -> ann teammate and ben -> ann friend")
}
