// Package stats turns a user's flat transaction list into dashboard
// aggregates: rolling monthly/yearly totals and time-bucketed series
// for charting. Every function here is a pure computation over its
// inputs; the reference instant is always injected, never read from
// the system clock.
package stats

import (
	"errors"
	"fmt"
	"time"

	"duit/internal/core"
)

// ErrInvalidTransaction reports a transaction that would poison the
// sums: zero date, non-positive amount, or unknown kind. Callers are
// expected to validate before construction; this guard keeps garbage
// out of the aggregates anyway.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Stats holds the calendar-scoped totals shown on the dashboard cards.
// MonthlyBalance may be negative.
type Stats struct {
	MonthlyIncome  core.Money
	MonthlyExpense core.Money
	MonthlyBalance core.Money
	YearlyExpense  core.Money
}

// ComputeStats aggregates the collection against now's calendar month
// and year. Monthly scope means same calendar month and year as now
// (not a rolling 30 days); yearly scope means same calendar year.
// Yearly expense sums expenses only; income never affects it.
//
// An empty collection yields all-zero Stats and no error.
func ComputeStats(txs []core.Transaction, now time.Time) (Stats, error) {
	var s Stats
	year, month, _ := now.Date()
	for i := range txs {
		tx := &txs[i]
		if err := checkTransaction(tx); err != nil {
			return Stats{}, err
		}
		ty, tm, _ := tx.Date.Date()
		if ty != year {
			continue
		}
		inMonth := tm == month
		switch tx.Kind {
		case core.KindIncome:
			if inMonth {
				s.MonthlyIncome.Units += tx.Amount.Units
			}
		case core.KindExpense:
			s.YearlyExpense.Units += tx.Amount.Units
			if inMonth {
				s.MonthlyExpense.Units += tx.Amount.Units
			}
		}
	}
	s.MonthlyBalance.Units = s.MonthlyIncome.Units - s.MonthlyExpense.Units
	return s, nil
}

func checkTransaction(tx *core.Transaction) error {
	if tx.Date.IsZero() {
		return fmt.Errorf("%w: zero date (id=%s)", ErrInvalidTransaction, tx.ID)
	}
	if tx.Amount.Units <= 0 {
		return fmt.Errorf("%w: non-positive amount %d (id=%s)", ErrInvalidTransaction, tx.Amount.Units, tx.ID)
	}
	if tx.Kind != core.KindIncome && tx.Kind != core.KindExpense {
		return fmt.Errorf("%w: unknown kind %q (id=%s)", ErrInvalidTransaction, tx.Kind, tx.ID)
	}
	return nil
}
