package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/carteraclaro/backend/src/database"
	"github.com/username/carteraclaro/backend/src/model"
	"github.com/username/carteraclaro/backend/src/models"
)

type fakeBroker struct {
	transfers    []models.RawTransfer
	transfersErr error
	prices       map[string]float64
	total        models.AccountTotal
}

func (f *fakeBroker) GetTransfers(ctx context.Context, from, to time.Time) ([]models.RawTransfer, error) {
	return f.transfers, f.transfersErr
}

func (f *fakeBroker) GetTickerPrice(ctx context.Context, ticker string) (float64, error) {
	price, ok := f.prices[ticker]
	if !ok {
		return 0, ErrNoPriceForTerm
	}
	return price, nil
}

func (f *fakeBroker) GetAccountTotal(ctx context.Context) (models.AccountTotal, error) {
	return f.total, nil
}

type fakeSheet struct {
	existing map[string][][]string
	appended map[string][][]string
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{
		existing: make(map[string][][]string),
		appended: make(map[string][][]string),
	}
}

func (f *fakeSheet) ReadRows(ctx context.Context, tab string) ([][]string, error) {
	return f.existing[tab], nil
}

func (f *fakeSheet) AppendRows(ctx context.Context, tab string, rows [][]string) error {
	f.appended[tab] = append(f.appended[tab], rows...)
	return nil
}

type fakeEmail struct {
	sent []*SyncSummary
}

func (f *fakeEmail) SendSyncReport(summary *SyncSummary) error {
	f.sent = append(f.sent, summary)
	return nil
}

func setupTestDB(t *testing.T) {
	t.Helper()
	migrations, err := filepath.Abs("../../db/migrations")
	require.NoError(t, err)
	t.Setenv("MIGRATIONS_PATH", migrations)

	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	database.RunMigrations("")
}

func sampleTransfers() []models.RawTransfer {
	return []models.RawTransfer{
		{ID: "b1", Ticker: "GGAL", Type: "BUY", Quantity: 10, Amount: -1000, Price: 100, Date: "2024-01-02"},
		{ID: "s1", Ticker: "GGAL", Type: "SELL", Quantity: 10, Amount: 1200, Price: 120, Date: "2024-02-11"},
		{ID: "b2", Ticker: "PAMP", Type: "BUY", Quantity: 8, Amount: -800, Price: 100, Date: "2024-03-05"},
	}
}

func sinceDate(t *testing.T) time.Time {
	t.Helper()
	since, err := time.Parse("2006-01-02", "2024-01-01")
	require.NoError(t, err)
	return since
}

func TestSyncService_RunSyncEndToEnd(t *testing.T) {
	setupTestDB(t)
	broker := &fakeBroker{transfers: sampleTransfers(), prices: map[string]float64{"PAMP": 115}}
	sheetSvc := newFakeSheet()
	email := &fakeEmail{}
	svc := NewSyncService(broker, sheetSvc, email, "Operaciones", "Total diario")

	summary, err := svc.RunSync(context.Background(), sinceDate(t), time.Time{})

	require.NoError(t, err)
	assert.Equal(t, 3, summary.TransfersFetched)
	assert.Equal(t, 1, summary.ClosedPositions)
	assert.Equal(t, 1, summary.OpenBuys)
	assert.Equal(t, 0, summary.OpenSells)
	assert.Equal(t, model.RunStatusDone, summary.Status)
	require.Len(t, summary.Records, 2)

	// Header plus both records landed on the positions tab.
	appended := sheetSvc.appended["Operaciones"]
	require.Len(t, appended, 3)
	assert.Equal(t, "Estado", appended[0][0])

	// The run and its records were persisted.
	run, err := model.GetSyncRunByID(database.DB, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusDone, run.Status)
	assert.Equal(t, 3, run.TransfersFetched)
	require.NotNil(t, run.FinishedAt)

	stored, err := model.GetPositionRecordsByRunID(database.DB, summary.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// The report went out once.
	require.Len(t, email.sent, 1)
	assert.Equal(t, summary.RunID, email.sent[0].RunID)
}

func TestSyncService_RunSyncSkipsRowsAlreadyOnSheet(t *testing.T) {
	setupTestDB(t)
	broker := &fakeBroker{transfers: sampleTransfers(), prices: map[string]float64{"PAMP": 115}}
	sheetSvc := newFakeSheet()
	email := &fakeEmail{}
	svc := NewSyncService(broker, sheetSvc, email, "Operaciones", "Total diario")

	// First run populates the sheet; feed its output back as the existing
	// content and run again.
	first, err := svc.RunSync(context.Background(), sinceDate(t), time.Time{})
	require.NoError(t, err)
	require.Equal(t, 3, first.RowsAppended)

	sheetSvc.existing["Operaciones"] = sheetSvc.appended["Operaciones"]
	sheetSvc.appended = make(map[string][][]string)

	second, err := svc.RunSync(context.Background(), sinceDate(t), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.RowsAppended)
	assert.Empty(t, sheetSvc.appended["Operaciones"])
}

func TestSyncService_OpenPositionWithoutPriceStillRecorded(t *testing.T) {
	setupTestDB(t)
	broker := &fakeBroker{transfers: sampleTransfers(), prices: map[string]float64{}}
	svc := NewSyncService(broker, newFakeSheet(), &fakeEmail{}, "Operaciones", "Total diario")

	summary, err := svc.RunSync(context.Background(), sinceDate(t), time.Time{})

	require.NoError(t, err)
	var open *models.PositionRecord
	for i := range summary.Records {
		if summary.Records[i].State == models.StateOpen {
			open = &summary.Records[i]
		}
	}
	require.NotNil(t, open)
	assert.Equal(t, "PAMP", open.Ticker)
	assert.Nil(t, open.CurrentPrice)
	assert.Nil(t, open.UnrealizedPnL)
}

func TestSyncService_BrokerFailureMarksRunFailed(t *testing.T) {
	setupTestDB(t)
	broker := &fakeBroker{transfersErr: ErrBrokerFetch}
	email := &fakeEmail{}
	svc := NewSyncService(broker, newFakeSheet(), email, "Operaciones", "Total diario")

	_, err := svc.RunSync(context.Background(), sinceDate(t), time.Time{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBrokerFetch))

	runs, err := model.ListSyncRuns(database.DB, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].Error)

	// The failure goes out by email too.
	require.Len(t, email.sent, 1)
	assert.Equal(t, model.RunStatusFailed, email.sent[0].Status)
	assert.NotEmpty(t, email.sent[0].Error)
}

func TestSyncService_GetLatestSummary(t *testing.T) {
	setupTestDB(t)
	broker := &fakeBroker{transfers: sampleTransfers(), prices: map[string]float64{"PAMP": 115}}
	svc := NewSyncService(broker, newFakeSheet(), &fakeEmail{}, "Operaciones", "Total diario")

	_, found := svc.GetLatestSummary()
	assert.False(t, found)

	summary, err := svc.RunSync(context.Background(), sinceDate(t), time.Time{})
	require.NoError(t, err)

	latest, found := svc.GetLatestSummary()
	require.True(t, found)
	assert.Equal(t, summary.RunID, latest.RunID)
}

func TestSyncService_RecordDailyTotal(t *testing.T) {
	setupTestDB(t)
	broker := &fakeBroker{total: models.AccountTotal{ARS: 1500000.5, USD: 1200}}
	sheetSvc := newFakeSheet()
	svc := NewSyncService(broker, sheetSvc, &fakeEmail{}, "Operaciones", "Total diario")

	err := svc.RecordDailyTotal(context.Background())

	require.NoError(t, err)
	appended := sheetSvc.appended["Total diario"]
	require.Len(t, appended, 1)
	require.Len(t, appended[0], 3)
	assert.Equal(t, time.Now().Format("02-01-2006"), appended[0][0])
	assert.Equal(t, "1500000,50", appended[0][1])
	assert.Equal(t, "1200", appended[0][2])
}
