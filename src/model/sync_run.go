package model

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncRun is the persisted record of one reconciliation run.
type SyncRun struct {
	ID               string     `json:"id"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	SinceDate        string     `json:"since_date"`
	ToDate           string     `json:"to_date"`
	TransfersFetched int        `json:"transfers_fetched"`
	ClosedPositions  int        `json:"closed_positions"`
	OpenBuys         int        `json:"open_buys"`
	OpenSells        int        `json:"open_sells"`
	RowsAppended     int        `json:"rows_appended"`
	Status           string     `json:"status"`
	Error            *string    `json:"error,omitempty"`
}

const (
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

func CreateSyncRun(db *sql.DB, run *SyncRun) error {
	_, err := db.Exec(
		`INSERT INTO sync_runs (id, started_at, since_date, to_date, status) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.SinceDate, run.ToDate, RunStatusRunning)
	if err != nil {
		return fmt.Errorf("error creating sync run: %w", err)
	}
	return nil
}

func FinishSyncRun(db *sql.DB, run *SyncRun) error {
	_, err := db.Exec(
		`UPDATE sync_runs SET finished_at = ?, transfers_fetched = ?, closed_positions = ?, open_buys = ?, open_sells = ?, rows_appended = ?, status = ?, error = ? WHERE id = ?`,
		run.FinishedAt, run.TransfersFetched, run.ClosedPositions, run.OpenBuys, run.OpenSells, run.RowsAppended, run.Status, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("error finishing sync run %s: %w", run.ID, err)
	}
	return nil
}

func GetSyncRunByID(db *sql.DB, id string) (*SyncRun, error) {
	run := &SyncRun{}
	err := db.QueryRow(
		`SELECT id, started_at, finished_at, since_date, to_date, transfers_fetched, closed_positions, open_buys, open_sells, rows_appended, status, error FROM sync_runs WHERE id = ?`,
		id).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.SinceDate, &run.ToDate,
		&run.TransfersFetched, &run.ClosedPositions, &run.OpenBuys, &run.OpenSells,
		&run.RowsAppended, &run.Status, &run.Error)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("error querying sync run %s: %w", id, err)
	}
	return run, nil
}

func ListSyncRuns(db *sql.DB, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT id, started_at, finished_at, since_date, to_date, transfers_fetched, closed_positions, open_buys, open_sells, rows_appended, status, error FROM sync_runs ORDER BY started_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("error listing sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.SinceDate, &run.ToDate,
			&run.TransfersFetched, &run.ClosedPositions, &run.OpenBuys, &run.OpenSells,
			&run.RowsAppended, &run.Status, &run.Error); err != nil {
			return nil, fmt.Errorf("error scanning sync run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
