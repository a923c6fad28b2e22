// Package format renders core values for Indonesian-locale display.
// It sits above the stats core: aggregates stay numeric, the HTTP
// layer asks here for display strings.
package format

import (
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Indonesian)

// Rupiah formats whole Rupiah units with Indonesian digit grouping,
// e.g. 200000 -> "Rp200.000", -50000 -> "-Rp50.000".
func Rupiah(units int64) string {
	if units < 0 {
		return printer.Sprintf("-Rp%v", number.Decimal(-units))
	}
	return printer.Sprintf("Rp%v", number.Decimal(units))
}

// Indonesian short month names. The stdlib time package only knows
// English month names, so the labeler carries its own table.
var shortMonths = [...]string{
	time.January:   "Jan",
	time.February:  "Feb",
	time.March:     "Mar",
	time.April:     "Apr",
	time.May:       "Mei",
	time.June:      "Jun",
	time.July:      "Jul",
	time.August:    "Agu",
	time.September: "Sep",
	time.October:   "Okt",
	time.November:  "Nov",
	time.December:  "Des",
}

// MonthLabel renders a month bucket label in Indonesian short form,
// e.g. "Mar 2024", "Agu 2024". Matches stats.MonthLabeler.
func MonthLabel(year int, month time.Month) string {
	// Years must not pick up locale digit grouping.
	if month < time.January || month > time.December {
		return strconv.Itoa(year)
	}
	return shortMonths[month] + " " + strconv.Itoa(year)
}
