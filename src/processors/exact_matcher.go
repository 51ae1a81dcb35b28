package processors

import (
	"github.com/username/carteraclaro/backend/src/models"
)

// ExactMatcher pairs a buy with a sell of the same ticker and exactly
// opposite quantity.
type ExactMatcher struct{}

func NewExactMatcher() *ExactMatcher {
	return &ExactMatcher{}
}

// Match walks the buys in arena order and, for each one, takes the first
// unconsumed sell of the same ticker whose quantity is the exact opposite.
// First found wins; dates are not consulted. Both sides are consumed
// immediately so neither can match again. Buys without a counterpart are
// simply left in the pool.
func (m *ExactMatcher) Match(buys, sells *Pool) []models.MatchedPair {
	var pairs []models.MatchedPair
	for _, bi := range buys.Active() {
		buy := buys.At(bi)
		for _, si := range sells.Active() {
			sell := sells.At(si)
			if sell.Ticker != buy.Ticker || sell.Quantity != -buy.Quantity {
				continue
			}
			matched := sell
			pairs = append(pairs, models.MatchedPair{
				Buy:  buy,
				Sell: &matched,
				Note: models.NoteExactMatch,
			})
			buys.Consume(bi)
			sells.Consume(si)
			break
		}
	}
	return pairs
}
