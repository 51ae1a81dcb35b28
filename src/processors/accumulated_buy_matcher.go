package processors

import (
	"math"

	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/models"
)

// buyAccumulator carries the running per-ticker state of an accumulation
// pass: summed quantity and cost of the buys gathered so far, plus their
// arena indices so a match can consume all of them at once.
type buyAccumulator struct {
	quantity float64
	amount   float64
	used     []int
}

func (a *buyAccumulator) reset() {
	a.quantity = 0
	a.amount = 0
	a.used = nil
}

// AccumulatedBuyMatcher closes a sell against several consecutive buys of the
// same ticker whose summed quantity equals the sell's magnitude exactly.
type AccumulatedBuyMatcher struct{}

func NewAccumulatedBuyMatcher() *AccumulatedBuyMatcher {
	return &AccumulatedBuyMatcher{}
}

// Match walks the residual buys in date order (stable on ties) and grows a
// per-ticker accumulator with each one. After every addition it scans the
// residual sells of that ticker for one whose quantity magnitude equals the
// accumulated buy quantity. The first such sell wins: the pair is emitted
// with the entry cost pro-rated across the accumulated buys, every
// participating transaction is consumed, and the accumulator resets.
//
// If no sell magnitude ever equals the running total, the gathered buys stay
// open for the rest of this pass. There is no partial or approximate matching
// across several sells; that behavior is deliberate.
func (m *AccumulatedBuyMatcher) Match(buys, sells *Pool) []models.MatchedPair {
	var pairs []models.MatchedPair
	accumulated := make(map[string]*buyAccumulator)

	for _, bi := range buys.ActiveSortedByDate() {
		buy := buys.At(bi)
		acc := accumulated[buy.Ticker]
		if acc == nil {
			acc = &buyAccumulator{}
			accumulated[buy.Ticker] = acc
		}
		acc.quantity += buy.Quantity
		acc.amount += buy.Amount
		acc.used = append(acc.used, bi)

		logger.L.Debug("Accumulating buy",
			"ticker", buy.Ticker,
			"quantity", buy.Quantity,
			"accumulatedQuantity", acc.quantity,
			"accumulatedAmount", acc.amount)

		for _, si := range sells.Active() {
			sell := sells.At(si)
			if sell.Ticker != buy.Ticker {
				continue
			}
			sellQuantity := math.Abs(sell.Quantity)
			if acc.quantity != sellQuantity {
				continue
			}

			// Entry cost attributed to the matched portion of the group.
			matchedBuyAmount := (sellQuantity / acc.quantity) * acc.amount

			// The last accumulated buy carries the pair's buy-side fields,
			// with quantity and amount overridden by the accumulated values.
			matchedBuy := buy
			matchedBuy.Quantity = acc.quantity
			matchedBuy.Amount = matchedBuyAmount

			matchedSell := sell
			pairs = append(pairs, models.MatchedPair{
				Buy:  matchedBuy,
				Sell: &matchedSell,
				Note: models.NoteAccumulatedBuys,
			})
			logger.L.Debug("Accumulated buy match", "ticker", buy.Ticker, "quantity", sellQuantity)

			for _, used := range acc.used {
				buys.Consume(used)
			}
			sells.Consume(si)
			acc.reset()
			break
		}
	}
	return pairs
}
