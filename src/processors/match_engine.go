package processors

import (
	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/models"
)

// MatchResult is the terminal output of one engine run.
type MatchResult struct {
	Closed    []models.PositionRecord // Positions closed by one of the passes
	OpenBuys  []models.Transaction    // Buys no pass could close
	OpenSells []models.Transaction    // Sells no pass could close; should be empty
	Other     []models.Transaction    // Transfers that were neither buys nor sells
}

// MatchEngine runs the three matching passes in fixed order over one batch of
// raw transfers, carrying the unmatched remainder of each pass into the next.
// Each run owns an independent pair of pools; the engine keeps no state
// between invocations.
type MatchEngine struct {
	classifier *TransactionClassifier
	exact      *ExactMatcher
	accBuys    *AccumulatedBuyMatcher
	accSells   *AccumulatedSellMatcher
	builder    *PositionRecordBuilder
}

func NewMatchEngine() *MatchEngine {
	return &MatchEngine{
		classifier: NewTransactionClassifier(),
		exact:      NewExactMatcher(),
		accBuys:    NewAccumulatedBuyMatcher(),
		accSells:   NewAccumulatedSellMatcher(),
		builder:    NewPositionRecordBuilder(),
	}
}

// Run classifies the transfers, applies the exact, accumulated-buy and
// accumulated-sell passes in that order, and returns the closed positions
// plus whatever stayed unmatched. The accumulated-buy pass only runs when
// both residual sides are non-empty; the accumulated-sell pass when either
// is. A non-empty OpenSells is a data-quality signal, not an error: it is
// logged as a warning and returned for the caller to judge.
func (e *MatchEngine) Run(transfers []models.RawTransfer) MatchResult {
	classified := e.classifier.Classify(transfers)
	logger.L.Info("Transfers classified",
		"buys", len(classified.Buys),
		"sells", len(classified.Sells),
		"other", len(classified.Other))

	buys := NewPool(classified.Buys)
	sells := NewPool(classified.Sells)

	pairs := e.exact.Match(buys, sells)
	logger.L.Info("Exact match pass complete",
		"matched", len(pairs),
		"remainingBuys", buys.Remaining(),
		"remainingSells", sells.Remaining())

	if buys.Remaining() > 0 && sells.Remaining() > 0 {
		accumulated := e.accBuys.Match(buys, sells)
		logger.L.Info("Accumulated buy pass complete",
			"matched", len(accumulated),
			"remainingBuys", buys.Remaining(),
			"remainingSells", sells.Remaining())
		pairs = append(pairs, accumulated...)
	} else {
		logger.L.Info("No unmatched transactions left for the accumulated buy pass")
	}

	if buys.Remaining() > 0 || sells.Remaining() > 0 {
		accumulated := e.accSells.Match(buys, sells)
		logger.L.Info("Accumulated sell pass complete",
			"matched", len(accumulated),
			"remainingBuys", buys.Remaining(),
			"remainingSells", sells.Remaining())
		pairs = append(pairs, accumulated...)
	}

	result := MatchResult{
		OpenBuys:  buys.RemainingTransactions(),
		OpenSells: sells.RemainingTransactions(),
		Other:     classified.Other,
	}
	for _, pair := range pairs {
		record, err := e.builder.Build(pair, nil)
		if err != nil {
			logger.L.Warn("Dropping unbuildable position record", "ticker", pair.Buy.Ticker, "error", err)
			continue
		}
		result.Closed = append(result.Closed, record)
	}

	if len(result.OpenSells) > 0 {
		logger.L.Warn("Sells left unmatched after all passes; check input data",
			"count", len(result.OpenSells))
	}
	return result
}

// Builder exposes the engine's record builder so callers can turn open buys
// into records once a current price is known.
func (e *MatchEngine) Builder() *PositionRecordBuilder {
	return e.builder
}
