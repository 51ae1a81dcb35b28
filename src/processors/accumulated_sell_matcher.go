package processors

import (
	"math"
	"time"

	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/models"
)

type sellAccumulator struct {
	quantity float64 // absolute units accumulated
	amount   float64
	used     []int
	lastDate time.Time
}

func (a *sellAccumulator) reset() {
	a.quantity = 0
	a.amount = 0
	a.used = nil
}

// AccumulatedSellMatcher is the mirror of AccumulatedBuyMatcher: several
// sells of one ticker are gathered until their summed magnitude equals one
// residual buy's quantity, and the position closes at the sells'
// quantity-weighted average price.
type AccumulatedSellMatcher struct{}

func NewAccumulatedSellMatcher() *AccumulatedSellMatcher {
	return &AccumulatedSellMatcher{}
}

// Match walks the residual sells in date order (stable on ties), accumulating
// per ticker. After each addition it scans the residual buys of that ticker
// for one whose quantity equals the accumulated magnitude; the first hit wins.
// The exit amount is accumulated quantity times the group's average price per
// unit, and the close date is the last accumulated sell's date.
func (m *AccumulatedSellMatcher) Match(buys, sells *Pool) []models.MatchedPair {
	var pairs []models.MatchedPair
	accumulated := make(map[string]*sellAccumulator)

	for _, si := range sells.ActiveSortedByDate() {
		sell := sells.At(si)
		acc := accumulated[sell.Ticker]
		if acc == nil {
			acc = &sellAccumulator{}
			accumulated[sell.Ticker] = acc
		}
		acc.quantity += math.Abs(sell.Quantity)
		acc.amount += sell.Amount
		acc.used = append(acc.used, si)
		acc.lastDate = sell.Date

		logger.L.Debug("Accumulating sell",
			"ticker", sell.Ticker,
			"quantity", sell.Quantity,
			"accumulatedQuantity", acc.quantity,
			"accumulatedAmount", acc.amount)

		averagePricePerUnit := 0.0
		if acc.quantity != 0 {
			averagePricePerUnit = acc.amount / acc.quantity
		}

		for _, bi := range buys.Active() {
			buy := buys.At(bi)
			if buy.Ticker != sell.Ticker || acc.quantity != buy.Quantity {
				continue
			}

			matchedSellAmount := acc.quantity * averagePricePerUnit

			// The sell leg reuses the buy leg's ticker, price and id; only
			// quantity, amount and date carry the accumulated values.
			// TODO: confirm whether the sell leg should instead carry the
			// accumulated sells' own price and id before changing this.
			matchedSell := buy
			matchedSell.Kind = models.KindSell
			matchedSell.Quantity = acc.quantity
			matchedSell.Amount = matchedSellAmount
			matchedSell.Date = acc.lastDate

			pairs = append(pairs, models.MatchedPair{
				Buy:  buy,
				Sell: &matchedSell,
				Note: models.NoteAccumulatedSells,
			})
			logger.L.Debug("Accumulated sell match", "ticker", sell.Ticker, "quantity", acc.quantity)

			for _, used := range acc.used {
				sells.Consume(used)
			}
			buys.Consume(bi)
			acc.reset()
			break
		}
	}
	return pairs
}
