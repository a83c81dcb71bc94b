package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/trash-inspection/migrations"
)

func newMemoryDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Driver: DriverSQLite, Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSplitStatements(t *testing.T) {
	sqlText := `
-- comment line
CREATE TABLE a (id INTEGER);

CREATE TABLE b (
    id INTEGER
);
INSERT INTO a VALUES (1)
`
	stmts := splitStatements(sqlText)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (id INTEGER);", stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE b")
	assert.Equal(t, "INSERT INTO a VALUES (1)", stmts[2])
}

func TestMigrator_RunsEmbeddedSQLiteMigrations(t *testing.T) {
	db := newMemoryDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	require.NoError(t, migrator.RunMigrationsFS(migrations.FS, db.Driver))
	// second run is a no-op
	require.NoError(t, migrator.RunMigrationsFS(migrations.FS, db.Driver))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	for _, table := range []string{"trash_inspections", "trash_inspection_cases", "event_queue"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestMigrator_AppliesInVersionOrder(t *testing.T) {
	db := newMemoryDB(t)
	fsys := fstest.MapFS{
		"m/002_add_column.sql": {Data: []byte("ALTER TABLE things ADD COLUMN label TEXT;")},
		"m/001_things.sql":     {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
		"m/readme.txt":         {Data: []byte("ignored")},
	}

	require.NoError(t, NewMigrator(db, zap.NewNop()).RunMigrationsFS(fsys, "m"))

	_, err := db.Exec("INSERT INTO things (id, label) VALUES (1, 'x')")
	assert.NoError(t, err)
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	db := newMemoryDB(t)
	fsys := fstest.MapFS{
		"m/001_broken.sql": {Data: []byte("CREATE TABLE oops (;")},
	}

	err := NewMigrator(db, zap.NewNop()).RunMigrationsFS(fsys, "m")
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Driver: "postgres"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(Config{Driver: DriverMySQL}, zap.NewNop())
	assert.ErrorContains(t, err, "requires a dsn")

	_, err = New(Config{Driver: DriverMySQL, DSN: "user:pw@tcp(localhost:3306)/db"}, zap.NewNop())
	assert.ErrorContains(t, err, "parseTime=true")
}
