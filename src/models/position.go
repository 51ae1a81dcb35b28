package models

import "time"

// PositionState tells whether a position has been closed by a matching sell.
type PositionState string

const (
	StateOpen   PositionState = "Open"
	StateClosed PositionState = "Closed"
)

// Notes attached to matched pairs, identifying which pass produced them.
const (
	NoteExactMatch       = "Exact match"
	NoteAccumulatedBuys  = "Accumulated buys"
	NoteAccumulatedSells = "Accumulated sells"
)

// MatchedPair couples a buy with the sell that closed it. Sell is nil for a
// buy that stayed open through every matching pass.
type MatchedPair struct {
	Buy  Transaction  `json:"buy"`
	Sell *Transaction `json:"sell,omitempty"`
	Note string       `json:"note"`
}

// Closed reports whether the pair carries an exit leg.
func (p MatchedPair) Closed() bool {
	return p.Sell != nil
}

// PositionRecord is the immutable outcome of a match, or of a buy left open
// at the end of a run. Pointer fields are absent rather than zero when the
// underlying figure does not apply to the position's state.
type PositionRecord struct {
	State       PositionState `json:"state"`
	Ticker      string        `json:"ticker"`
	OpenDate    time.Time     `json:"open_date"`
	Quantity    float64       `json:"quantity"`
	EntryPrice  float64       `json:"entry_price"`  // Always positive
	EntryAmount float64       `json:"entry_amount"` // Always positive

	// Open positions only.
	CurrentPrice     *float64 `json:"current_price,omitempty"` // Externally supplied market price
	UnrealizedPnL    *float64 `json:"unrealized_pnl,omitempty"`
	UnrealizedPnLPct *float64 `json:"unrealized_pnl_pct,omitempty"`

	// Closed positions only.
	CloseDate      *time.Time `json:"close_date,omitempty"`
	HoldingDays    *int       `json:"holding_days,omitempty"`
	ExitAmount     *float64   `json:"exit_amount,omitempty"`
	RealizedPnL    *float64   `json:"realized_pnl,omitempty"`
	RealizedPnLPct *float64   `json:"realized_pnl_pct,omitempty"`

	Note string `json:"note"` // Which matching pass closed it; empty while open
}
