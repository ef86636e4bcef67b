package migrations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const schema = `create table if not exists notes (id integer primary key, body text not null);`

func TestOpenAndMigrateDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	for range 2 {
		db, err := OpenAndMigrateDB(schema, path)
		require.NoError(t, err)
		_, err = db.Exec("insert into notes (body) values ('hello')")
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}

	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("select count(*) from notes").Scan(&count))
	require.Equal(t, 2, count)
}

func TestIsRemote(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{path: "libsql://ecourts.turso.io?authToken=abc", expected: true},
		{path: "https://ecourts.turso.io", expected: true},
		{path: "state/ecourts.db", expected: false},
		{path: ":memory:", expected: false},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, IsRemote(test.path), test.path)
	}
}
