package processors

import (
	"fmt"
	"sort"

	"github.com/username/carteraclaro/backend/src/models"
)

// Pool is the mutable working set of not-yet-matched transactions for one
// engine run. Entries are stored once in an arena and flagged consumed when a
// match uses them, instead of being physically removed. Every scan filters on
// the flag, so a transaction can never be matched twice and the invariant is
// directly checkable.
type Pool struct {
	arena    []models.Transaction
	consumed []bool
}

// NewPool copies the given transactions into a fresh arena.
func NewPool(txs []models.Transaction) *Pool {
	arena := make([]models.Transaction, len(txs))
	copy(arena, txs)
	return &Pool{
		arena:    arena,
		consumed: make([]bool, len(arena)),
	}
}

// Len returns the total arena size, consumed entries included.
func (p *Pool) Len() int {
	return len(p.arena)
}

// Remaining returns how many entries have not been consumed.
func (p *Pool) Remaining() int {
	n := 0
	for _, c := range p.consumed {
		if !c {
			n++
		}
	}
	return n
}

// At returns the transaction stored at arena index i.
func (p *Pool) At(i int) models.Transaction {
	return p.arena[i]
}

// Consumed reports whether arena index i has already been used in a match.
func (p *Pool) Consumed(i int) bool {
	return p.consumed[i]
}

// Consume marks arena index i as used. Consuming the same index twice is a
// programmer error and panics.
func (p *Pool) Consume(i int) {
	if p.consumed[i] {
		panic(fmt.Sprintf("transaction %s at index %d consumed twice", p.arena[i].ID, i))
	}
	p.consumed[i] = true
}

// Active returns the arena indices of unconsumed entries in arena order.
func (p *Pool) Active() []int {
	indices := make([]int, 0, len(p.arena))
	for i := range p.arena {
		if !p.consumed[i] {
			indices = append(indices, i)
		}
	}
	return indices
}

// ActiveSortedByDate returns the unconsumed indices ordered by transaction
// date ascending. The sort is stable: equal dates keep arena order.
func (p *Pool) ActiveSortedByDate() []int {
	indices := p.Active()
	sort.SliceStable(indices, func(a, b int) bool {
		return p.arena[indices[a]].Date.Before(p.arena[indices[b]].Date)
	})
	return indices
}

// RemainingTransactions returns the unconsumed transactions in arena order.
func (p *Pool) RemainingTransactions() []models.Transaction {
	var remaining []models.Transaction
	for _, i := range p.Active() {
		remaining = append(remaining, p.arena[i])
	}
	return remaining
}
