package timeutil

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Excel serials outside this range are treated as plain numbers, not dates.
const (
	minExcelSerial = 1.0
	maxExcelSerial = 2958465.0 // 9999-12-31
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-06",
	"1/2/2006",
	"02.01.2006",
}

// ParseDate parses a spreadsheet cell into a UTC time. It accepts ISO-like
// layouts, US month-first layouts and raw Excel serial numbers. ok is false for
// empty or unparsable input.
func ParseDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}

	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(serial) || serial < minExcelSerial || serial > maxExcelSerial {
		return time.Time{}, false
	}
	parsed, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

// AgeYears counts whole 365-day years between birth and now. Leap days are not
// corrected for, matching the analysts' spreadsheets.
func AgeYears(birth, now time.Time) int {
	if birth.IsZero() || now.Before(birth) {
		return 0
	}
	days := int(now.Sub(birth).Hours() / 24)
	return days / 365
}
