package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type QueryLog struct {
	ID              int64
	Timestamp       string
	State           string
	District        string
	CaseNumber      string
	Status          string
	RawJsonResponse sql.NullString
}

const createQueryLog = `
insert into query_logs (timestamp, state, district, case_number, status, raw_json_response)
values (?, ?, ?, ?, ?, ?)
returning id
`

type CreateQueryLogParams struct {
	Timestamp       string
	State           string
	District        string
	CaseNumber      string
	Status          string
	RawJsonResponse sql.NullString
}

func (q *Queries) CreateQueryLog(ctx context.Context, arg CreateQueryLogParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createQueryLog,
		arg.Timestamp,
		arg.State,
		arg.District,
		arg.CaseNumber,
		arg.Status,
		arg.RawJsonResponse,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listQueryLogs = `
select id, timestamp, state, district, case_number, status, raw_json_response from query_logs
order by timestamp desc, id desc
limit ?
`

func (q *Queries) ListQueryLogs(ctx context.Context, limit int64) ([]QueryLog, error) {
	rows, err := q.db.QueryContext(ctx, listQueryLogs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []QueryLog
	for rows.Next() {
		var i QueryLog
		if err := rows.Scan(
			&i.ID,
			&i.Timestamp,
			&i.State,
			&i.District,
			&i.CaseNumber,
			&i.Status,
			&i.RawJsonResponse,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countQueryLogs = `
select count(*) from query_logs
`

func (q *Queries) CountQueryLogs(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countQueryLogs)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countQueryLogsWithStatus = `
select count(*) from query_logs
where status = ?
`

func (q *Queries) CountQueryLogsWithStatus(ctx context.Context, status string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countQueryLogsWithStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const topStates = `
select state, count(*) as cnt from query_logs
group by state
order by cnt desc, state asc
limit ?
`

type TopStatesRow struct {
	State string
	Cnt   int64
}

func (q *Queries) TopStates(ctx context.Context, limit int64) ([]TopStatesRow, error) {
	rows, err := q.db.QueryContext(ctx, topStates, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TopStatesRow
	for rows.Next() {
		var i TopStatesRow
		if err := rows.Scan(&i.State, &i.Cnt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteQueryLogs = `
delete from query_logs
`

func (q *Queries) DeleteQueryLogs(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteQueryLogs)
	return err
}
