package processors

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error", "text")
	os.Exit(m.Run())
}

func TestClassifier_SplitsByType(t *testing.T) {
	classifier := NewTransactionClassifier()
	transfers := []models.RawTransfer{
		{ID: "1", Ticker: "GGAL", Type: "BUY", Quantity: 10, Amount: -1000, Price: 100, Date: "2024-01-02"},
		{ID: "2", Ticker: "GGAL", Type: "SELL", Quantity: 10, Amount: 1100, Price: 110, Date: "2024-02-02"},
		{ID: "3", Ticker: "YPFD", Type: "DIVIDEND", Quantity: 0, Amount: 50, Date: "2024-02-10"},
	}

	out := classifier.Classify(transfers)

	require.Len(t, out.Buys, 1)
	require.Len(t, out.Sells, 1)
	require.Len(t, out.Other, 1)
	assert.Equal(t, models.KindBuy, out.Buys[0].Kind)
	assert.Equal(t, models.KindSell, out.Sells[0].Kind)
	assert.Equal(t, models.KindOther, out.Other[0].Kind)
}

func TestClassifier_DropsExcludedTickersAndDeposits(t *testing.T) {
	classifier := NewTransactionClassifier()
	transfers := []models.RawTransfer{
		{ID: "1", Ticker: "MGCGO", Type: "BUY", Quantity: 5, Date: "2024-01-02"},
		{ID: "2", Ticker: "AL30", Type: "SELL", Quantity: 5, Date: "2024-01-02"},
		{ID: "3", Ticker: "MGCBO", Type: "BUY", Quantity: 5, Date: "2024-01-02"},
		{ID: "4", Ticker: "TDA24", Type: "SELL", Quantity: 5, Date: "2024-01-02"},
		{ID: "5", Ticker: "GGAL", Type: "DEPOSIT", Quantity: 0, Amount: 5000, Date: "2024-01-02"},
	}

	out := classifier.Classify(transfers)

	assert.Empty(t, out.Buys)
	assert.Empty(t, out.Sells)
	assert.Empty(t, out.Other)
}

func TestClassifier_NormalizesQuantitySigns(t *testing.T) {
	classifier := NewTransactionClassifier()
	transfers := []models.RawTransfer{
		// Broker reports a negative quantity on a buy and a positive one on
		// a sell; both must be normalized.
		{ID: "1", Ticker: "GGAL", Type: "BUY", Quantity: -10, Amount: -1000, Date: "2024-01-02"},
		{ID: "2", Ticker: "GGAL", Type: "SELL", Quantity: 10, Amount: 1100, Date: "2024-02-02"},
	}

	out := classifier.Classify(transfers)

	require.Len(t, out.Buys, 1)
	require.Len(t, out.Sells, 1)
	assert.Equal(t, 10.0, out.Buys[0].Quantity)
	assert.Equal(t, -10.0, out.Sells[0].Quantity)
}

func TestClassifier_SkipsInvalidTransfers(t *testing.T) {
	classifier := NewTransactionClassifier()
	transfers := []models.RawTransfer{
		{ID: "1", Ticker: "", Type: "BUY", Quantity: 10, Date: "2024-01-02"},
		{ID: "2", Ticker: "GGAL", Type: "", Quantity: 10, Date: "2024-01-02"},
		{ID: "3", Ticker: "GGAL", Type: "BUY", Quantity: 10, Date: "not-a-date"},
		{ID: "4", Ticker: "GGAL", Type: "BUY", Quantity: 0, Date: "2024-01-02"},
		{ID: "5", Ticker: "GGAL", Type: "BUY", Quantity: 10, Amount: -1000, Date: "2024-01-02"},
	}

	out := classifier.Classify(transfers)

	require.Len(t, out.Buys, 1)
	assert.Equal(t, "5", out.Buys[0].ID)
}

func TestClassifier_GeneratesStableIDsForEmptyOnes(t *testing.T) {
	classifier := NewTransactionClassifier()
	transfer := models.RawTransfer{Ticker: "GGAL", Type: "BUY", Quantity: 10, Amount: -1000, Date: "2024-01-02"}

	first := classifier.Classify([]models.RawTransfer{transfer})
	second := classifier.Classify([]models.RawTransfer{transfer})

	require.Len(t, first.Buys, 1)
	require.Len(t, second.Buys, 1)
	assert.NotEmpty(t, first.Buys[0].ID)
	assert.Equal(t, first.Buys[0].ID, second.Buys[0].ID)
}

func TestClassifier_AcceptsSheetDateLayout(t *testing.T) {
	classifier := NewTransactionClassifier()
	transfers := []models.RawTransfer{
		{ID: "1", Ticker: "GGAL", Type: "BUY", Quantity: 10, Date: "02-01-2024"},
	}

	out := classifier.Classify(transfers)

	require.Len(t, out.Buys, 1)
	assert.Equal(t, 2024, out.Buys[0].Date.Year())
	assert.Equal(t, 2, out.Buys[0].Date.Day())
}
