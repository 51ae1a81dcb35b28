package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/carteraclaro/backend/src/models"
)

var (
	ErrBrokerAuth     = errors.New("broker authentication failed")
	ErrBrokerFetch    = errors.New("broker fetch failed")
	ErrSheetAccess    = errors.New("spreadsheet access failed")
	ErrNoPriceForTerm = errors.New("no quote for requested term")
)

// BrokerService is the session client for the brokerage API: it owns login,
// two-factor verification and the account-scoped headers, and exposes the
// read operations the sync needs.
type BrokerService interface {
	GetTransfers(ctx context.Context, from, to time.Time) ([]models.RawTransfer, error)
	GetTickerPrice(ctx context.Context, ticker string) (float64, error)
	GetAccountTotal(ctx context.Context) (models.AccountTotal, error)
}

// TwoFactorCodeProvider supplies the one-time code the broker mails out
// during login.
type TwoFactorCodeProvider interface {
	Code(ctx context.Context) (string, error)
}

// SheetService reads and appends rows on the target spreadsheet.
type SheetService interface {
	ReadRows(ctx context.Context, tab string) ([][]string, error)
	AppendRows(ctx context.Context, tab string, rows [][]string) error
}

// EmailService notifies the operator about completed or failed syncs.
type EmailService interface {
	SendSyncReport(summary *SyncSummary) error
}

// SyncSummary describes one reconciliation run end to end.
type SyncSummary struct {
	RunID            string                  `json:"run_id"`
	StartedAt        time.Time               `json:"started_at"`
	FinishedAt       time.Time               `json:"finished_at"`
	Since            time.Time               `json:"since"`
	To               time.Time               `json:"to"`
	TransfersFetched int                     `json:"transfers_fetched"`
	ClosedPositions  int                     `json:"closed_positions"`
	OpenBuys         int                     `json:"open_buys"`
	OpenSells        int                     `json:"open_sells"`
	RowsAppended     int                     `json:"rows_appended"`
	Status           string                  `json:"status"`
	Error            string                  `json:"error,omitempty"`
	Records          []models.PositionRecord `json:"records"`
}

// SyncService runs the reconciliation pipeline: fetch transfers, match, price
// the open buys, render rows, filter the ones already on the sheet, append,
// and persist the run.
type SyncService interface {
	RunSync(ctx context.Context, since, to time.Time) (*SyncSummary, error)
	RecordDailyTotal(ctx context.Context) error
	GetLatestSummary() (*SyncSummary, bool)
}
