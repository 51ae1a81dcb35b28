package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateRows() [][]string {
	return [][]string{
		Header,
		{"Cerrada", "GGAL", "02-01-2024", "10", "100", "1000", " ", " ", " ", "11-02-2024", "40", "1200", "200", "20", "Exact match"},
		{"Abierta", "PAMP", "05-03-2024", "8", "100", "800", " ", " ", " ", " ", " ", " ", " ", " ", ""},
	}
}

func TestFilterAlreadyInserted_EmptySheetKeepsEverything(t *testing.T) {
	candidates := candidateRows()

	filtered := FilterAlreadyInserted(candidates, nil)

	assert.Equal(t, candidates, filtered)
}

func TestFilterAlreadyInserted_DropsMatchingKeys(t *testing.T) {
	candidates := candidateRows()
	existing := [][]string{
		Header,
		{"Cerrada", "GGAL", "02-01-2024", "10", "100", "1000", " ", " ", " ", "11-02-2024", "40", "1200", "200", "20", "Exact match"},
	}

	filtered := FilterAlreadyInserted(candidates, existing)

	require.Len(t, filtered, 2)
	assert.Equal(t, Header, filtered[0])
	assert.Equal(t, "PAMP", filtered[1][1])
}

func TestFilterAlreadyInserted_KeyIsStateTickerQuantity(t *testing.T) {
	candidates := candidateRows()
	// Same ticker and quantity but different state: not a duplicate.
	existing := [][]string{
		Header,
		{"Abierta", "GGAL", "02-01-2024", "10", "100", "1000", " ", " ", " ", " ", " ", " ", " ", " ", ""},
	}

	filtered := FilterAlreadyInserted(candidates, existing)

	require.Len(t, filtered, 3)
}

func TestFilterAlreadyInserted_TrimsKeyCells(t *testing.T) {
	candidates := candidateRows()
	existing := [][]string{
		Header,
		{" Cerrada ", " GGAL ", "x", " 10 "},
	}

	filtered := FilterAlreadyInserted(candidates, existing)

	require.Len(t, filtered, 2)
	assert.Equal(t, "PAMP", filtered[1][1])
}

func TestFilterAlreadyInserted_MissingKeyColumnsReturnsEmpty(t *testing.T) {
	candidates := [][]string{
		{"Fecha", "Monto"},
		{"02-01-2024", "1000"},
	}

	filtered := FilterAlreadyInserted(candidates, nil)

	assert.Empty(t, filtered)
}

func TestFilterAlreadyInserted_NoCandidates(t *testing.T) {
	assert.Nil(t, FilterAlreadyInserted(nil, candidateRows()))
}
