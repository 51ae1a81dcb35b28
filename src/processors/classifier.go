package processors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/models"
	"github.com/username/carteraclaro/backend/src/utils"
)

// Instrument codes that are not tradable positions (money-market funds and
// treasury notes the broker reports alongside equities). Transfers for these
// are dropped before classification.
var excludedTickers = map[string]bool{
	"MGCGO": true,
	"AL30":  true,
	"MGCBO": true,
	"TDA24": true,
}

const depositType = "DEPOSIT"

// Classified holds the three disjoint outputs of a classification pass, each
// preserving the input's relative order.
type Classified struct {
	Buys  []models.Transaction
	Sells []models.Transaction
	Other []models.Transaction
}

type TransactionClassifier struct{}

func NewTransactionClassifier() *TransactionClassifier {
	return &TransactionClassifier{}
}

// Classify filters and splits raw transfers into buys, sells and everything
// else. Excluded tickers and deposits are discarded before classification.
// A transfer missing a required field is skipped with a warning; the rest of
// the batch is unaffected.
func (c *TransactionClassifier) Classify(transfers []models.RawTransfer) Classified {
	var out Classified
	for _, transfer := range transfers {
		if excludedTickers[transfer.Ticker] || transfer.Type == depositType {
			continue
		}

		tx, err := parseTransfer(transfer)
		if err != nil {
			logger.L.Warn("Skipping transfer", "ticker", transfer.Ticker, "type", transfer.Type, "error", err)
			continue
		}

		switch tx.Kind {
		case models.KindBuy:
			out.Buys = append(out.Buys, tx)
		case models.KindSell:
			out.Sells = append(out.Sells, tx)
		default:
			out.Other = append(out.Other, tx)
		}
	}
	return out
}

// parseTransfer validates one raw transfer and converts it to a Transaction.
// The quantity sign is normalized so it always agrees with the kind.
func parseTransfer(transfer models.RawTransfer) (models.Transaction, error) {
	if transfer.Ticker == "" {
		return models.Transaction{}, fmt.Errorf("missing ticker")
	}
	if transfer.Type == "" {
		return models.Transaction{}, fmt.Errorf("missing type")
	}
	date, err := utils.ParseFlexibleDate(transfer.Date)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid date: %w", err)
	}

	kind := models.KindOther
	quantity := transfer.Quantity
	switch strings.ToUpper(transfer.Type) {
	case "BUY":
		kind = models.KindBuy
		quantity = math.Abs(transfer.Quantity)
	case "SELL":
		kind = models.KindSell
		quantity = -math.Abs(transfer.Quantity)
	}
	if kind != models.KindOther && quantity == 0 {
		return models.Transaction{}, fmt.Errorf("zero quantity on %s", kind)
	}

	id := transfer.ID
	if id == "" {
		id = generateTransferID(transfer)
	}

	return models.Transaction{
		ID:       id,
		Ticker:   transfer.Ticker,
		Kind:     kind,
		Quantity: quantity,
		Amount:   transfer.Amount,
		Price:    transfer.Price,
		Date:     date,
	}, nil
}

// generateTransferID derives a stable identity for transfers the broker
// reports without one.
func generateTransferID(transfer models.RawTransfer) string {
	input := fmt.Sprintf("%s|%s|%f|%f|%s", transfer.Ticker, transfer.Type, transfer.Quantity, transfer.Amount, transfer.Date)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
