package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial dates count days since 1899-12-30; 25569 is the offset to
// the Unix epoch. Serials outside this window are assumed to be document
// numbers, not dates.
const (
	excelEpochOffset = 25569
	minSerialDate    = 20000 // ~1954
	maxSerialDate    = 80000 // ~2119
)

// ParseExcelDate turns a cell value into a timestamp, or nil when the value is
// not recognizably a date. Callers must treat nil as "date unknown", never as
// the epoch. Accepted forms: numeric spreadsheet serials, DD/MM/YYYY,
// DD-MM-YYYY, YYYY-MM-DD (2-digit years promoted by adding 2000), plus a
// generic layout scan as last resort. All results land on local noon so a
// timezone conversion can never shift the calendar day.
func ParseExcelDate(value string) *time.Time {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "/-") {
		if serial < minSerialDate || serial > maxSerialDate {
			return nil
		}
		secs := math.Round((serial - excelEpochOffset) * 86400)
		day := time.Unix(int64(secs), 0).UTC()
		t := atNoon(day.Year(), day.Month(), day.Day())
		return &t
	}

	if strings.Contains(s, "/") {
		if t := parseDayMonthYear(strings.Split(s, "/")); t != nil {
			return t
		}
	}

	if strings.Contains(s, "-") {
		parts := strings.Split(s, "-")
		if len(parts) == 3 {
			if first, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil && first > 1900 {
				// YYYY-MM-DD
				if t, err := time.ParseInLocation("2006-1-2", s, time.Local); err == nil {
					noon := atNoon(t.Year(), t.Month(), t.Day())
					return &noon
				}
			}
			if t := parseDayMonthYear(parts); t != nil {
				return t
			}
		}
	}

	// Last resort: common unambiguous layouts.
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			noon := atNoon(t.Year(), t.Month(), t.Day())
			return &noon
		}
	}
	return nil
}

func parseDayMonthYear(parts []string) *time.Time {
	if len(parts) != 3 {
		return nil
	}
	day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := atNoon(year, time.Month(month), day)
	return &t
}

func atNoon(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.Local)
}

// DaysBetween returns the whole days from a to b, rounding any partial day up.
func DaysBetween(a, b time.Time) int {
	return int(math.Ceil(b.Sub(a).Hours() / 24))
}
