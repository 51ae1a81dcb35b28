package processors

import (
	"fmt"
	"math"

	"github.com/username/carteraclaro/backend/src/models"
	"github.com/username/carteraclaro/backend/src/utils"
)

// PositionRecordBuilder converts matched pairs and leftover open buys into
// immutable position records.
type PositionRecordBuilder struct{}

func NewPositionRecordBuilder() *PositionRecordBuilder {
	return &PositionRecordBuilder{}
}

// Build creates a position record from a matched pair. A pair without a sell
// leg becomes an Open record; currentPrice, when supplied, prices the open
// position's unrealized figures and is ignored for closed pairs.
//
// A missing required field fails only this record; callers log the error and
// continue with the rest of the batch.
func (b *PositionRecordBuilder) Build(pair models.MatchedPair, currentPrice *float64) (models.PositionRecord, error) {
	buy := pair.Buy
	if buy.Ticker == "" {
		return models.PositionRecord{}, fmt.Errorf("buy leg missing ticker")
	}
	if buy.Date.IsZero() {
		return models.PositionRecord{}, fmt.Errorf("buy leg missing open date")
	}

	record := models.PositionRecord{
		State:       models.StateOpen,
		Ticker:      buy.Ticker,
		OpenDate:    buy.Date,
		Quantity:    buy.Quantity,
		EntryPrice:  math.Abs(buy.Price),
		EntryAmount: math.Abs(buy.Amount),
		Note:        pair.Note,
	}

	if !pair.Closed() {
		if currentPrice != nil {
			record.CurrentPrice = currentPrice
			unrealized := (*currentPrice - record.EntryPrice) * record.Quantity
			record.UnrealizedPnL = &unrealized
			if record.EntryAmount != 0 {
				pct := unrealized / record.EntryAmount * 100
				record.UnrealizedPnLPct = &pct
			}
		}
		return record, nil
	}

	sell := *pair.Sell
	if sell.Date.IsZero() {
		return models.PositionRecord{}, fmt.Errorf("sell leg missing close date")
	}

	record.State = models.StateClosed
	closeDate := sell.Date
	record.CloseDate = &closeDate

	days := utils.DaysBetween(buy.Date, sell.Date)
	record.HoldingDays = &days

	exitAmount := sell.Amount
	record.ExitAmount = &exitAmount

	pnl := exitAmount - record.EntryAmount
	record.RealizedPnL = &pnl
	if record.EntryAmount != 0 {
		pct := pnl / record.EntryAmount * 100
		record.RealizedPnLPct = &pct
	}

	return record, nil
}
