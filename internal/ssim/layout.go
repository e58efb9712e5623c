// Package ssim encodes and decodes the fixed-format bulk schedule file.
// One leg record per line, bracketed by a header line carrying carrier and
// season and a trailer line carrying the record count.
//
// Parser and generator share the column table below, which is what keeps
// the two sides symmetric: the generator writes each field into exactly
// the slice the parser reads it back from.
package ssim

import (
	"fmt"
	"strings"
)

// Record type is the first character of every line.
const (
	recHeader  = '1'
	recLeg     = '3'
	recTrailer = '5'
)

// column is one fixed-width field position, start inclusive, end exclusive.
type column struct {
	name  string
	start int
	end   int
}

// Leg record line, e.g.
//
//	3 HZ 0100 SGN0600 HAN0815 0 1234567 A320 Y180 J 15MAR25 31OCT25
const (
	colCarrier     = "carrier"
	colFlight      = "flight"
	colDepStation  = "dep_station"
	colSTD         = "std"
	colArrStation  = "arr_station"
	colSTA         = "sta"
	colDayOffset   = "day_offset"
	colDays        = "days"
	colAircraft    = "aircraft"
	colCabin       = "cabin"
	colService     = "service"
	colEffFrom     = "eff_from"
	colEffTo       = "eff_to"
	colSeason      = "season"
	colRecordCount = "record_count"
)

var legColumns = []column{
	{colCarrier, 2, 5},
	{colFlight, 5, 9},
	{colDepStation, 10, 13},
	{colSTD, 13, 17},
	{colArrStation, 18, 21},
	{colSTA, 21, 25},
	{colDayOffset, 26, 27},
	{colDays, 28, 35},
	{colAircraft, 36, 40},
	{colCabin, 41, 45},
	{colService, 46, 47},
	{colEffFrom, 48, 55},
	{colEffTo, 56, 63},
}

const legLineWidth = 63

// Header line, e.g. "1 HZ  S25".
var headerColumns = []column{
	{colCarrier, 2, 5},
	{colSeason, 6, 9},
}

const headerLineWidth = 9

// Trailer line, e.g. "5 HZ  000001".
var trailerColumns = []column{
	{colCarrier, 2, 5},
	{colRecordCount, 6, 12},
}

const trailerLineWidth = 12

// sliceColumns cuts a line into trimmed fields by the column table. Short
// lines read as blanks past their end, so an absent trailing field (an
// open-ended effective-to) is simply empty.
func sliceColumns(line string, cols []column) map[string]string {
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		start, end := c.start, c.end
		if start > len(line) {
			start = len(line)
		}
		if end > len(line) {
			end = len(line)
		}
		out[c.name] = strings.TrimSpace(line[start:end])
	}
	return out
}

// checkWidths refuses any value longer than its column. A value the table
// cannot hold must fail generation outright; slicing it would emit a line
// that parses back to a different record with no reported error.
func checkWidths(cols []column, values map[string]string) error {
	for _, c := range cols {
		if v := values[c.name]; len(v) > c.end-c.start {
			return fmt.Errorf("%s %q longer than %d characters", c.name, v, c.end-c.start)
		}
	}
	return nil
}

// buildLine writes fields into a blank line of the given width by the same
// column table the parser slices with. Values are left-justified; callers
// pre-pad numeric fields and width-check via checkWidths.
func buildLine(recordType byte, width int, cols []column, values map[string]string) string {
	buf := make([]byte, width)
	for i := range buf {
		buf[i] = ' '
	}
	buf[0] = recordType
	for _, c := range cols {
		copy(buf[c.start:], values[c.name])
	}
	return strings.TrimRight(string(buf), " ")
}
