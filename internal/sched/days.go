package sched

import (
	"fmt"
	"strings"
)

// DaySet is a set of operating weekdays, Monday=1 through Sunday=7.
// The wire form is the SSIM 7-character string where position n holds the
// digit n if the flight operates that day and '-' otherwise, e.g. "1-3-5--".
type DaySet uint8

// NewDaySet builds a DaySet from weekday numbers 1-7. Out-of-range days
// are ignored.
func NewDaySet(days ...int) DaySet {
	var s DaySet
	for _, d := range days {
		if d >= 1 && d <= 7 {
			s |= 1 << (d - 1)
		}
	}
	return s
}

// ParseDaySet decodes the 7-character days-of-operation string.
func ParseDaySet(s string) (DaySet, error) {
	if len(s) != 7 {
		return 0, fmt.Errorf("days string %q: want 7 characters", s)
	}
	var set DaySet
	for i := 0; i < 7; i++ {
		switch s[i] {
		case byte('1' + i):
			set |= 1 << i
		case '-', ' ':
		default:
			return 0, fmt.Errorf("days string %q: bad character %q at position %d", s, s[i], i+1)
		}
	}
	if set == 0 {
		return 0, fmt.Errorf("days string %q: no operating days", s)
	}
	return set, nil
}

// Contains reports whether weekday d (1-7) is in the set.
func (s DaySet) Contains(d int) bool {
	if d < 1 || d > 7 {
		return false
	}
	return s&(1<<(d-1)) != 0
}

// Empty reports whether no day is set.
func (s DaySet) Empty() bool { return s == 0 }

// Days returns the operating weekdays in ascending order.
func (s DaySet) Days() []int {
	var out []int
	for d := 1; d <= 7; d++ {
		if s.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

// MarshalJSON encodes the set as its 7-character wire form.
func (s DaySet) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes the 7-character wire form.
func (s *DaySet) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	parsed, err := ParseDaySet(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// String renders the SSIM 7-character form.
func (s DaySet) String() string {
	var b strings.Builder
	for d := 1; d <= 7; d++ {
		if s.Contains(d) {
			b.WriteByte(byte('0' + d))
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
