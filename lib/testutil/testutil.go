package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"ecourts-backend/lib/telemetry"

	_ "modernc.org/sqlite"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService prepares telemetry and an in-memory sqlite database with
// `params.DbSchema` applied. The returned func releases both.
func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	t.Helper()
	cleanupTelemetry := telemetry.SetupForTesting(fmt.Sprintf("test:%s", params.Name))
	if params.DbSchema == "" {
		return ServiceResult{}, cleanupTelemetry
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is its own database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(params.DbSchema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		t.Fatal(err)
	}

	return ServiceResult{DB: db}, func() {
		db.Close()
		cleanupTelemetry()
	}
}
