package migrations

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// IsRemote reports whether `path` names a libsql server rather than a
// local sqlite file.
func IsRemote(path string) bool {
	for _, scheme := range []string{"libsql://", "http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}

// OpenDB opens a local sqlite file (created along with its directory when
// missing) or, for libsql urls, a remote database.
func OpenDB(path string) (*sql.DB, error) {
	if IsRemote(path) {
		db, err := sql.Open("libsql", path)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return db, nil
	}

	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, wrapOpenDB(err)
		}
	}

	return db, nil
}

func wrapOpenAndMigrate(err error) error {
	return fmt.Errorf("open and migrate db: %w", err)
}

// OpenAndMigrateDB opens the database at `path` and applies `schema`, which
// must only contain idempotent statements ("create ... if not exists").
func OpenAndMigrateDB(schema, path string) (*sql.DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, wrapOpenAndMigrate(err)
	}
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, wrapOpenAndMigrate(err)
	}
	return db, nil
}
