package utils

import (
	"fmt"
	"time"
)

// SheetDateFormat is the day-first layout used for every date cell written to
// or read from the spreadsheet.
const SheetDateFormat = "02-01-2006"

// BrokerDateFormat is the ISO layout the broker API uses in query parameters
// and transfer payloads.
const BrokerDateFormat = "2006-01-02"

// ParseFlexibleDate accepts either the broker's ISO layout or the sheet's
// day-first layout.
func ParseFlexibleDate(dateStr string) (time.Time, error) {
	if t, err := time.Parse(BrokerDateFormat, dateStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse(SheetDateFormat, dateStr); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", dateStr)
}

// FormatSheetDate renders a date the way the spreadsheet expects it.
func FormatSheetDate(t time.Time) string {
	return t.Format(SheetDateFormat)
}

// DaysBetween returns the number of whole calendar days from open to close.
func DaysBetween(open, close time.Time) int {
	openDay := time.Date(open.Year(), open.Month(), open.Day(), 0, 0, 0, 0, time.UTC)
	closeDay := time.Date(close.Year(), close.Month(), close.Day(), 0, 0, 0, 0, time.UTC)
	return int(closeDay.Sub(openDay).Hours() / 24)
}
