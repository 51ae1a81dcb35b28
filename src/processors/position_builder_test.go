package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/carteraclaro/backend/src/models"
)

func TestPositionBuilder_ClosedPair(t *testing.T) {
	builder := NewPositionRecordBuilder()
	sell := models.Transaction{ID: "s1", Ticker: "GGAL", Kind: models.KindSell, Quantity: -10, Amount: 1200, Date: day("2024-02-11")}
	pair := models.MatchedPair{
		Buy:  models.Transaction{ID: "b1", Ticker: "GGAL", Kind: models.KindBuy, Quantity: 10, Amount: -1000, Price: 100, Date: day("2024-01-02")},
		Sell: &sell,
		Note: models.NoteExactMatch,
	}

	record, err := builder.Build(pair, nil)

	require.NoError(t, err)
	assert.Equal(t, models.StateClosed, record.State)
	assert.Equal(t, "GGAL", record.Ticker)
	assert.Equal(t, 100.0, record.EntryPrice)
	assert.Equal(t, 1000.0, record.EntryAmount)
	require.NotNil(t, record.CloseDate)
	assert.Equal(t, day("2024-02-11"), *record.CloseDate)
	require.NotNil(t, record.HoldingDays)
	assert.Equal(t, 40, *record.HoldingDays)
	require.NotNil(t, record.ExitAmount)
	assert.Equal(t, 1200.0, *record.ExitAmount)
	require.NotNil(t, record.RealizedPnL)
	assert.InDelta(t, 200.0, *record.RealizedPnL, 1e-9)
	require.NotNil(t, record.RealizedPnLPct)
	assert.InDelta(t, 20.0, *record.RealizedPnLPct, 1e-9)
	assert.Nil(t, record.CurrentPrice)
	assert.Nil(t, record.UnrealizedPnL)
}

func TestPositionBuilder_OpenWithPrice(t *testing.T) {
	builder := NewPositionRecordBuilder()
	pair := models.MatchedPair{
		Buy: models.Transaction{ID: "b1", Ticker: "GGAL", Quantity: 10, Amount: -1000, Price: 100, Date: day("2024-01-02")},
	}
	price := 130.0

	record, err := builder.Build(pair, &price)

	require.NoError(t, err)
	assert.Equal(t, models.StateOpen, record.State)
	require.NotNil(t, record.CurrentPrice)
	assert.Equal(t, 130.0, *record.CurrentPrice)
	require.NotNil(t, record.UnrealizedPnL)
	assert.InDelta(t, 300.0, *record.UnrealizedPnL, 1e-9)
	require.NotNil(t, record.UnrealizedPnLPct)
	assert.InDelta(t, 30.0, *record.UnrealizedPnLPct, 1e-9)
	assert.Nil(t, record.CloseDate)
	assert.Nil(t, record.RealizedPnL)
}

func TestPositionBuilder_OpenWithoutPrice(t *testing.T) {
	builder := NewPositionRecordBuilder()
	pair := models.MatchedPair{
		Buy: models.Transaction{ID: "b1", Ticker: "GGAL", Quantity: 10, Amount: -1000, Price: 100, Date: day("2024-01-02")},
	}

	record, err := builder.Build(pair, nil)

	require.NoError(t, err)
	assert.Equal(t, models.StateOpen, record.State)
	assert.Nil(t, record.CurrentPrice)
	assert.Nil(t, record.UnrealizedPnL)
	assert.Nil(t, record.UnrealizedPnLPct)
}

func TestPositionBuilder_ZeroEntryAmountSkipsPercentages(t *testing.T) {
	builder := NewPositionRecordBuilder()
	sell := models.Transaction{Ticker: "GGAL", Quantity: -10, Amount: 100, Date: day("2024-02-01")}
	pair := models.MatchedPair{
		Buy:  models.Transaction{Ticker: "GGAL", Quantity: 10, Amount: 0, Price: 0, Date: day("2024-01-02")},
		Sell: &sell,
	}

	record, err := builder.Build(pair, nil)

	require.NoError(t, err)
	require.NotNil(t, record.RealizedPnL)
	assert.Nil(t, record.RealizedPnLPct)
}

func TestPositionBuilder_MissingFieldsFail(t *testing.T) {
	builder := NewPositionRecordBuilder()

	_, err := builder.Build(models.MatchedPair{
		Buy: models.Transaction{Date: day("2024-01-02")},
	}, nil)
	assert.Error(t, err)

	_, err = builder.Build(models.MatchedPair{
		Buy: models.Transaction{Ticker: "GGAL"},
	}, nil)
	assert.Error(t, err)

	sellNoDate := models.Transaction{Ticker: "GGAL", Quantity: -10}
	_, err = builder.Build(models.MatchedPair{
		Buy:  models.Transaction{Ticker: "GGAL", Quantity: 10, Date: day("2024-01-02")},
		Sell: &sellNoDate,
	}, nil)
	assert.Error(t, err)
}
