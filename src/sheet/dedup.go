package sheet

import (
	"strings"

	"github.com/username/carteraclaro/backend/src/logger"
)

// Key columns identifying a row that was already appended on a previous run.
// The engine itself is stateless; re-running it over the full history always
// reproduces the same rows, and this filter is what makes the append
// idempotent.
var dedupKeyColumns = []string{"Estado", "Ticker", "Cantidad"}

// FilterAlreadyInserted returns the candidate rows whose dedup key does not
// appear in the existing rows. Both inputs carry their header as row zero;
// the result keeps the candidate header. If either header is missing one of
// the key columns the function logs which ones and returns an empty result
// rather than guessing.
func FilterAlreadyInserted(candidates, existing [][]string) [][]string {
	if len(candidates) == 0 {
		return nil
	}

	candidateIdx, missing := keyColumnIndices(candidates[0])
	if len(missing) > 0 {
		logger.L.Error("Candidate rows missing dedup key columns", "columns", missing)
		return [][]string{}
	}
	if len(existing) == 0 {
		return candidates
	}
	existingIdx, missing := keyColumnIndices(existing[0])
	if len(missing) > 0 {
		logger.L.Error("Existing rows missing dedup key columns", "columns", missing)
		return [][]string{}
	}

	seen := make(map[string]bool)
	for _, row := range existing[1:] {
		if key, ok := dedupKey(row, existingIdx); ok {
			seen[key] = true
		}
	}

	filtered := [][]string{candidates[0]}
	for _, row := range candidates[1:] {
		key, ok := dedupKey(row, candidateIdx)
		if ok && seen[key] {
			continue
		}
		filtered = append(filtered, row)
	}

	logger.L.Info("Filtered previously inserted rows",
		"candidates", len(candidates)-1,
		"existing", len(existing)-1,
		"remaining", len(filtered)-1)
	return filtered
}

// keyColumnIndices locates the dedup key columns in a header row. The second
// return value lists any that are absent.
func keyColumnIndices(header []string) ([]int, []string) {
	indices := make([]int, 0, len(dedupKeyColumns))
	var missing []string
	for _, name := range dedupKeyColumns {
		found := -1
		for i, col := range header {
			if strings.TrimSpace(col) == name {
				found = i
				break
			}
		}
		if found < 0 {
			missing = append(missing, name)
			continue
		}
		indices = append(indices, found)
	}
	return indices, missing
}

func dedupKey(row []string, indices []int) (string, bool) {
	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		if i >= len(row) {
			return "", false
		}
		parts = append(parts, strings.TrimSpace(row[i]))
	}
	return strings.Join(parts, "_"), true
}
