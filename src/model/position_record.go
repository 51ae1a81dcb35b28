package model

import (
	"database/sql"
	"fmt"

	"github.com/username/carteraclaro/backend/src/models"
	"github.com/username/carteraclaro/backend/src/utils"
)

// InsertPositionRecords stores the records produced by one run inside a
// single transaction. Dates are kept in the sheet's dd-mm-yyyy format so the
// stored rows line up with what was appended.
func InsertPositionRecords(db *sql.DB, runID string, records []models.PositionRecord) error {
	if len(records) == 0 {
		return nil
	}

	dbTx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning transaction for position records: %w", err)
	}

	stmt, err := dbTx.Prepare(`INSERT INTO position_records (run_id, state, ticker, open_date, quantity, entry_price, entry_amount, current_price, close_date, holding_days, exit_amount, realized_pnl, realized_pnl_pct, note) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		dbTx.Rollback()
		return fmt.Errorf("error preparing position record insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var closeDate *string
		if r.CloseDate != nil {
			formatted := utils.FormatSheetDate(*r.CloseDate)
			closeDate = &formatted
		}
		_, err := stmt.Exec(runID, string(r.State), r.Ticker, utils.FormatSheetDate(r.OpenDate),
			r.Quantity, r.EntryPrice, r.EntryAmount, r.CurrentPrice,
			closeDate, r.HoldingDays, r.ExitAmount, r.RealizedPnL, r.RealizedPnLPct, r.Note)
		if err != nil {
			dbTx.Rollback()
			return fmt.Errorf("error inserting position record for %s: %w", r.Ticker, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing position records: %w", err)
	}
	return nil
}

// GetPositionRecordsByRunID returns the records of one run in insertion order.
func GetPositionRecordsByRunID(db *sql.DB, runID string) ([]models.PositionRecord, error) {
	rows, err := db.Query(
		`SELECT state, ticker, open_date, quantity, entry_price, entry_amount, current_price, close_date, holding_days, exit_amount, realized_pnl, realized_pnl_pct, note FROM position_records WHERE run_id = ? ORDER BY id ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("error querying position records for run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []models.PositionRecord
	for rows.Next() {
		var r models.PositionRecord
		var state, openDate string
		var closeDate *string
		if err := rows.Scan(&state, &r.Ticker, &openDate, &r.Quantity, &r.EntryPrice, &r.EntryAmount,
			&r.CurrentPrice, &closeDate, &r.HoldingDays, &r.ExitAmount, &r.RealizedPnL, &r.RealizedPnLPct, &r.Note); err != nil {
			return nil, fmt.Errorf("error scanning position record row: %w", err)
		}
		r.State = models.PositionState(state)
		parsed, err := utils.ParseFlexibleDate(openDate)
		if err != nil {
			return nil, fmt.Errorf("error parsing stored open date %q: %w", openDate, err)
		}
		r.OpenDate = parsed
		if closeDate != nil {
			parsedClose, err := utils.ParseFlexibleDate(*closeDate)
			if err != nil {
				return nil, fmt.Errorf("error parsing stored close date %q: %w", *closeDate, err)
			}
			r.CloseDate = &parsedClose
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// InsertAccountTotal stores one daily portfolio total snapshot.
func InsertAccountTotal(db *sql.DB, date string, total models.AccountTotal) error {
	_, err := db.Exec(
		`INSERT INTO account_totals (date, total_ars, total_usd) VALUES (?, ?, ?)`,
		date, total.ARS, total.USD)
	if err != nil {
		return fmt.Errorf("error inserting account total for %s: %w", date, err)
	}
	return nil
}
