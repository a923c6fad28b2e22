package stats

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"duit/internal/core"
)

const (
	// Last7Days buckets by day over [now-7d, now].
	Last7Days Window = "last-7-days"
	// Last30Days buckets by day over [now-30d, now].
	Last30Days Window = "last-30-days"
	// ThisYear buckets by month over [Jan 1, now].
	ThisYear Window = "this-year"
)

// Window selects the chart range and with it the bucket granularity.
type Window string

var ErrUnknownWindow = errors.New("unknown window")

// ParseWindow maps a request parameter to a Window.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case Last7Days, Last30Days, ThisYear:
		return w, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWindow, s)
}

// Bucket is one aggregation slot of the series: a calendar day or a
// calendar month, with summed income and expense and their difference.
type Bucket struct {
	Label   string
	Income  core.Money
	Expense core.Money
	Net     core.Money
}

// Breakdown is the two-slice pie aggregate over a window.
type Breakdown struct {
	TotalIncome  core.Money
	TotalExpense core.Money
}

// MonthLabeler renders the label of a month-granularity bucket.
type MonthLabeler func(year int, month time.Month) string

// Options configures series rendering. The zero value labels months in
// English short form ("Mar 2024"); callers wanting another locale pass
// their own labeler.
type Options struct {
	MonthLabel MonthLabeler
}

func defaultMonthLabel(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// bounds resolves a window against now. Both ends are inclusive.
func (w Window) bounds(now time.Time) (start, end core.Date, byMonth bool, err error) {
	end = core.DateOf(now)
	switch w {
	case Last7Days:
		start = core.DateOf(now.AddDate(0, 0, -7))
	case Last30Days:
		start = core.DateOf(now.AddDate(0, 0, -30))
	case ThisYear:
		start = core.NewDate(now.Year(), 1, 1)
		byMonth = true
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownWindow, w)
	}
	return start, end, byMonth, err
}

func inRange(d core.Date, start, end core.Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

type sums struct {
	income  int64
	expense int64
}

func (s *sums) add(tx *core.Transaction) {
	if tx.Kind == core.KindIncome {
		s.income += tx.Amount.Units
	} else {
		s.expense += tx.Amount.Units
	}
}

func bucketOf(label string, s sums) Bucket {
	return Bucket{
		Label:   label,
		Income:  core.Money{Units: s.income},
		Expense: core.Money{Units: s.expense},
		Net:     core.Money{Units: s.income - s.expense},
	}
}

// BuildSeries produces the ordered bucket sequence for a window.
//
// Day granularity (7/30-day windows) is gap-filled: one bucket per
// calendar date from start through now inclusive, ascending, zero
// buckets for days without transactions. The series length equals the
// day count of the range no matter how many transactions exist.
//
// Month granularity (this-year) is not gap-filled: only months with at
// least one transaction appear, sorted ascending by calendar month.
func BuildSeries(txs []core.Transaction, w Window, now time.Time, opts Options) ([]Bucket, error) {
	start, end, byMonth, err := w.bounds(now)
	if err != nil {
		return nil, err
	}
	if byMonth {
		return buildMonthly(txs, start, end, opts)
	}
	return buildDaily(txs, start, end)
}

func buildDaily(txs []core.Transaction, start, end core.Date) ([]Bucket, error) {
	grouped := make(map[string]sums)
	for i := range txs {
		tx := &txs[i]
		if err := checkTransaction(tx); err != nil {
			return nil, err
		}
		if !inRange(tx.Date, start, end) {
			continue
		}
		s := grouped[tx.Date.ISO()]
		s.add(tx)
		grouped[tx.Date.ISO()] = s
	}

	var buckets []Bucket
	for d := start; !d.After(end.Time); d = d.Next() {
		buckets = append(buckets, bucketOf(d.ISO(), grouped[d.ISO()]))
	}
	return buckets, nil
}

type monthKey struct {
	year  int
	month time.Month
}

func buildMonthly(txs []core.Transaction, start, end core.Date, opts Options) ([]Bucket, error) {
	label := opts.MonthLabel
	if label == nil {
		label = defaultMonthLabel
	}

	grouped := make(map[monthKey]sums)
	for i := range txs {
		tx := &txs[i]
		if err := checkTransaction(tx); err != nil {
			return nil, err
		}
		if !inRange(tx.Date, start, end) {
			continue
		}
		k := monthKey{year: tx.Date.Year(), month: tx.Date.Month()}
		s := grouped[k]
		s.add(tx)
		grouped[k] = s
	}

	keys := make([]monthKey, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, bucketOf(label(k.year, k.month), grouped[k]))
	}
	return buckets, nil
}

// BuildBreakdown sums income and expense across the window's filtered
// transactions for the pie chart. Empty windows yield zero totals.
func BuildBreakdown(txs []core.Transaction, w Window, now time.Time) (Breakdown, error) {
	start, end, _, err := w.bounds(now)
	if err != nil {
		return Breakdown{}, err
	}
	var b Breakdown
	for i := range txs {
		tx := &txs[i]
		if err := checkTransaction(tx); err != nil {
			return Breakdown{}, err
		}
		if !inRange(tx.Date, start, end) {
			continue
		}
		if tx.Kind == core.KindIncome {
			b.TotalIncome.Units += tx.Amount.Units
		} else {
			b.TotalExpense.Units += tx.Amount.Units
		}
	}
	return b, nil
}
