package sched

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ddmmmyy is the date layout used on the wire in both formats, e.g. 15MAR25.
const ddmmmyy = "02Jan06"

var flightNumberRe = regexp.MustCompile(`^([A-Z][A-Z0-9]{1,2}?)(\d{1,4})$`)

// SplitFlightNumber separates a combined flight designator like "HZ100"
// into carrier code and flight number digits.
func SplitFlightNumber(fn string) (carrier, number string, err error) {
	m := flightNumberRe.FindStringSubmatch(fn)
	if m == nil {
		return "", "", fmt.Errorf("bad flight number %q", fn)
	}
	return m[1], m[2], nil
}

// JoinFlightNumber combines carrier code and digits, dropping leading
// zeros from the numeric part so "HZ"+"0100" and "HZ"+"100" agree.
func JoinFlightNumber(carrier, digits string) string {
	n := strings.TrimLeft(digits, "0")
	if n == "" {
		n = "0"
	}
	return carrier + n
}

// ParseWireDate decodes a DDMMMYY date such as 15MAR25. Go's time package
// matches month names case-insensitively, so the uppercase wire form parses
// directly.
func ParseWireDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ddmmmyy, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}
	return t, nil
}

// FormatWireDate renders a date in the uppercase DDMMMYY wire form.
func FormatWireDate(t time.Time) string {
	return strings.ToUpper(t.Format(ddmmmyy))
}

// ValidTimeOfDay reports whether s is a valid "HH:MM" 24-hour time.
func ValidTimeOfDay(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return false
	}
	return true
}

// ParseWireTime converts a 4-digit wire time like "0600" to "06:00".
func ParseWireTime(s string) (string, error) {
	if len(s) != 4 {
		return "", fmt.Errorf("bad time %q", s)
	}
	out := s[:2] + ":" + s[2:]
	if !ValidTimeOfDay(out) {
		return "", fmt.Errorf("bad time %q", s)
	}
	return out, nil
}

// FormatWireTime converts "06:00" back to the 4-digit wire form.
func FormatWireTime(s string) string {
	return strings.Replace(s, ":", "", 1)
}
