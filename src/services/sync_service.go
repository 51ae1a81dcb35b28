package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/carteraclaro/backend/src/database"
	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/model"
	"github.com/username/carteraclaro/backend/src/models"
	"github.com/username/carteraclaro/backend/src/processors"
	"github.com/username/carteraclaro/backend/src/sheet"
	"github.com/username/carteraclaro/backend/src/utils"
)

const latestSummaryCacheKey = "latest_sync_summary"

// syncServiceImpl wires the broker, the matching engine, the sheet and the
// database into the end to end reconciliation run.
type syncServiceImpl struct {
	broker        BrokerService
	sheetSvc      SheetService
	email         EmailService
	engine        *processors.MatchEngine
	positionsTab  string
	dailyTotalTab string
	summaryCache  *cache.Cache
}

func NewSyncService(broker BrokerService, sheetSvc SheetService, email EmailService, positionsTab, dailyTotalTab string) SyncService {
	return &syncServiceImpl{
		broker:        broker,
		sheetSvc:      sheetSvc,
		email:         email,
		engine:        processors.NewMatchEngine(),
		positionsTab:  positionsTab,
		dailyTotalTab: dailyTotalTab,
		summaryCache:  cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

// RunSync executes one full reconciliation: fetch the transfer history, run
// the matching passes, price whatever stayed open, render the rows, drop the
// ones already on the sheet, append the rest, and persist the run. The run
// row is written up front so a crash mid-run still leaves a trace.
func (s *syncServiceImpl) RunSync(ctx context.Context, since, to time.Time) (*SyncSummary, error) {
	if to.IsZero() {
		to = time.Now()
	}
	run := &model.SyncRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		SinceDate: since.Format(utils.BrokerDateFormat),
		ToDate:    to.Format(utils.BrokerDateFormat),
	}
	logger.L.Info("Starting sync run", "runID", run.ID, "since", run.SinceDate, "to", run.ToDate)
	if err := model.CreateSyncRun(database.DB, run); err != nil {
		return nil, err
	}

	summary, err := s.executeSync(ctx, run, since, to)

	finished := time.Now()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = model.RunStatusFailed
		msg := err.Error()
		run.Error = &msg
	} else {
		run.Status = model.RunStatusDone
	}
	if finishErr := model.FinishSyncRun(database.DB, run); finishErr != nil {
		logger.L.Error("Failed to persist sync run outcome", "runID", run.ID, "error", finishErr)
	}

	if err != nil {
		failure := &SyncSummary{
			RunID:            run.ID,
			StartedAt:        run.StartedAt,
			FinishedAt:       finished,
			Since:            since,
			To:               to,
			TransfersFetched: run.TransfersFetched,
			Status:           run.Status,
			Error:            err.Error(),
		}
		if emailErr := s.email.SendSyncReport(failure); emailErr != nil {
			logger.L.Warn("Sync failure email failed", "runID", run.ID, "error", emailErr)
		}
		return nil, err
	}

	summary.FinishedAt = finished
	summary.Status = run.Status
	s.summaryCache.Set(latestSummaryCacheKey, summary, cache.NoExpiration)

	if emailErr := s.email.SendSyncReport(summary); emailErr != nil {
		// The sync itself succeeded; a failed report is logged, not returned.
		logger.L.Warn("Sync report email failed", "runID", run.ID, "error", emailErr)
	}
	return summary, nil
}

func (s *syncServiceImpl) executeSync(ctx context.Context, run *model.SyncRun, since, to time.Time) (*SyncSummary, error) {
	transfers, err := s.broker.GetTransfers(ctx, since, to)
	if err != nil {
		return nil, err
	}
	run.TransfersFetched = len(transfers)

	result := s.engine.Run(transfers)
	run.ClosedPositions = len(result.Closed)
	run.OpenBuys = len(result.OpenBuys)
	run.OpenSells = len(result.OpenSells)

	records := make([]models.PositionRecord, 0, len(result.Closed)+len(result.OpenBuys))
	records = append(records, result.Closed...)
	records = append(records, s.buildOpenRecords(ctx, result.OpenBuys)...)

	candidates := sheet.BuildRows(records)
	existing, err := s.sheetSvc.ReadRows(ctx, s.positionsTab)
	if err != nil {
		return nil, err
	}
	toAppend := sheet.FilterAlreadyInserted(candidates, existing)

	// A tab that already has content keeps its original header; only the
	// data rows are appended then.
	if len(existing) > 0 && len(toAppend) > 0 {
		toAppend = toAppend[1:]
	}
	if len(toAppend) > 0 {
		if err := s.sheetSvc.AppendRows(ctx, s.positionsTab, toAppend); err != nil {
			return nil, err
		}
		run.RowsAppended = len(toAppend)
	} else {
		logger.L.Info("No new rows to append", "runID", run.ID)
	}

	if err := model.InsertPositionRecords(database.DB, run.ID, records); err != nil {
		return nil, err
	}

	return &SyncSummary{
		RunID:            run.ID,
		StartedAt:        run.StartedAt,
		Since:            since,
		To:               to,
		TransfersFetched: run.TransfersFetched,
		ClosedPositions:  run.ClosedPositions,
		OpenBuys:         run.OpenBuys,
		OpenSells:        run.OpenSells,
		RowsAppended:     run.RowsAppended,
		Records:          records,
	}, nil
}

// buildOpenRecords turns the unmatched buys into open position records,
// pricing each ticker through the broker. A buy whose ticker cannot be
// priced still gets a record, just without valuation fields.
func (s *syncServiceImpl) buildOpenRecords(ctx context.Context, openBuys []models.Transaction) []models.PositionRecord {
	builder := s.engine.Builder()
	records := make([]models.PositionRecord, 0, len(openBuys))
	for _, buy := range openBuys {
		var currentPrice *float64
		price, err := s.broker.GetTickerPrice(ctx, buy.Ticker)
		if err != nil {
			if errors.Is(err, ErrNoPriceForTerm) {
				logger.L.Warn("No price for open position's ticker", "ticker", buy.Ticker)
			} else {
				logger.L.Warn("Price lookup failed for open position", "ticker", buy.Ticker, "error", err)
			}
		} else {
			currentPrice = &price
		}

		record, err := builder.Build(models.MatchedPair{Buy: buy}, currentPrice)
		if err != nil {
			logger.L.Warn("Dropping unbuildable open record", "ticker", buy.Ticker, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records
}

// RecordDailyTotal appends today's portfolio valuation to the daily totals
// tab and stores the same snapshot in the database.
func (s *syncServiceImpl) RecordDailyTotal(ctx context.Context) error {
	total, err := s.broker.GetAccountTotal(ctx)
	if err != nil {
		return err
	}

	today := utils.FormatSheetDate(time.Now())
	row := []string{today, sheet.FormatNumber(total.ARS), sheet.FormatNumber(total.USD)}
	if err := s.sheetSvc.AppendRows(ctx, s.dailyTotalTab, [][]string{row}); err != nil {
		return err
	}
	if err := model.InsertAccountTotal(database.DB, today, total); err != nil {
		return fmt.Errorf("account total appended to sheet but not stored: %w", err)
	}
	logger.L.Info("Recorded daily account total", "date", today, "ars", total.ARS, "usd", total.USD)
	return nil
}

// GetLatestSummary returns the summary of the most recent successful run in
// this process, if any.
func (s *syncServiceImpl) GetLatestSummary() (*SyncSummary, bool) {
	cached, found := s.summaryCache.Get(latestSummaryCacheKey)
	if !found {
		return nil, false
	}
	summary, ok := cached.(*SyncSummary)
	return summary, ok
}
