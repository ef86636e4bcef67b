// Package querylog persists an audit trail of case status submissions.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"ecourts-backend/lib/querylog/db"
	libtelemetry "ecourts-backend/lib/telemetry"
	"ecourts-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = libtelemetry.Tracer("ecourts.lib.querylog")

const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"

	DefaultLimit = 50
	maxLimit     = 500
	topStates    = 10
	maxRawLength = 65000

	// fixed width so timestamps sort lexically
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Entry is a single submission. State and District are display names, the
// caller resolves them from codes.
type Entry struct {
	State      string
	District   string
	CaseNumber string
	Success    bool
	Raw        []byte
}

type Log struct {
	ID              int64     `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	State           string    `json:"state"`
	District        string    `json:"district"`
	CaseNumber      string    `json:"case_number"`
	Status          string    `json:"status"`
	RawJsonResponse string    `json:"raw_json_response,omitempty"`
}

type StateCount struct {
	State string `json:"state"`
	Count int64  `json:"count"`
}

type Stats struct {
	TotalQueries       int64        `json:"total_queries"`
	SuccessfulQueries  int64        `json:"successful_queries"`
	FailedQueries      int64        `json:"failed_queries"`
	SuccessRate        float64      `json:"success_rate"`
	MostSearchedStates []StateCount `json:"most_searched_states"`
}

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// ClampLimit keeps a requested page size within 1..500.
func ClampLimit(limit int) int {
	return max(1, min(limit, maxLimit))
}

func truncate(raw []byte) string {
	if len(raw) <= maxRawLength {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw[:maxRawLength]), "")
}

func status(success bool) string {
	if success {
		return StatusSuccess
	}
	return StatusFailed
}

func (s Store) Log(ctx context.Context, entry Entry) (int64, error) {
	ctx, span := tracer.Start(ctx, "Log")
	defer span.End()

	span.SetAttributes(
		attribute.String("state", entry.State),
		attribute.String("case_number", entry.CaseNumber),
	)

	id, err := s.qry.CreateQueryLog(ctx, db.CreateQueryLogParams{
		Timestamp:  timezone.Now().Format(timestampLayout),
		State:      entry.State,
		District:   entry.District,
		CaseNumber: entry.CaseNumber,
		Status:     status(entry.Success),
		RawJsonResponse: sql.NullString{
			String: truncate(entry.Raw),
			Valid:  len(entry.Raw) > 0,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("log query: %w", err)
	}
	return id, nil
}

// Recent lists the latest logs, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Log, error) {
	ctx, span := tracer.Start(ctx, "Recent")
	defer span.End()

	rows, err := s.qry.ListQueryLogs(ctx, int64(ClampLimit(limit)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list query logs: %w", err)
	}

	logs := make([]Log, 0, len(rows))
	for _, row := range rows {
		timestamp, err := time.Parse(timestampLayout, row.Timestamp)
		if err != nil {
			span.RecordError(err)
			continue
		}
		logs = append(logs, Log{
			ID:              row.ID,
			Timestamp:       timestamp.In(timezone.Location),
			State:           row.State,
			District:        row.District,
			CaseNumber:      row.CaseNumber,
			Status:          row.Status,
			RawJsonResponse: row.RawJsonResponse.String,
		})
	}
	return logs, nil
}

func (s Store) Stats(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Stats")
	defer span.End()

	fail := func(err error) (Stats, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Stats{}, fmt.Errorf("query log stats: %w", err)
	}

	total, err := s.qry.CountQueryLogs(ctx)
	if err != nil {
		return fail(err)
	}
	successful, err := s.qry.CountQueryLogsWithStatus(ctx, StatusSuccess)
	if err != nil {
		return fail(err)
	}
	rows, err := s.qry.TopStates(ctx, topStates)
	if err != nil {
		return fail(err)
	}

	stats := Stats{
		TotalQueries:       total,
		SuccessfulQueries:  successful,
		FailedQueries:      total - successful,
		MostSearchedStates: make([]StateCount, 0, len(rows)),
	}
	if total > 0 {
		stats.SuccessRate = math.Round(float64(successful)/float64(total)*10000) / 100
	}
	for _, row := range rows {
		stats.MostSearchedStates = append(stats.MostSearchedStates, StateCount{
			State: row.State,
			Count: row.Cnt,
		})
	}
	return stats, nil
}

// Reset deletes every log.
func (s Store) Reset(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Reset")
	defer span.End()

	err := s.qry.DeleteQueryLogs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("reset query logs: %w", err)
	}
	return nil
}
