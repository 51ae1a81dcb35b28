package models

import "time"

// TransactionKind classifies one trade leg.
type TransactionKind string

const (
	KindBuy   TransactionKind = "BUY"
	KindSell  TransactionKind = "SELL"
	KindOther TransactionKind = "OTHER"
)

// RawTransfer represents a single movement as returned by the broker
// transfers endpoint, before any validation or classification.
type RawTransfer struct {
	ID       string  `json:"id"`       // Broker-side identifier (may be empty)
	Ticker   string  `json:"ticker"`   // Instrument short ticker
	Type     string  `json:"type"`     // e.g. "BUY", "SELL", "DEPOSIT"
	Quantity float64 `json:"quantity"` // Units traded (sign as reported)
	Amount   float64 `json:"amount"`   // Settled amount in account currency
	Price    float64 `json:"price"`    // Unit price
	Date     string  `json:"date"`     // Settlement date string
}

// Transaction is one validated trade leg inside an engine run.
//
// Quantity is signed: positive for buys, negative for sells. The sign is
// normalized at parse time so it always agrees with Kind.
type Transaction struct {
	ID       string          `json:"id"`
	Ticker   string          `json:"ticker"`
	Kind     TransactionKind `json:"kind"`
	Quantity float64         `json:"quantity"`
	Amount   float64         `json:"amount"` // Signed amount in account currency
	Price    float64         `json:"price"`
	Date     time.Time       `json:"date"`
}

// AccountTotal holds the broker account valuation in both currencies.
type AccountTotal struct {
	ARS float64 `json:"ars"`
	USD float64 `json:"usd"`
}
