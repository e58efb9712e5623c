package ssim

import (
	"fmt"
	"strconv"
	"strings"

	"schedlink/internal/sched"
)

// GenerateOptions carries the season metadata written to the header and
// trailer, plus an optional aircraft-type filter.
type GenerateOptions struct {
	Carrier      string
	Season       string
	AircraftType string // when set, legs with a different type are omitted entirely
}

// Generate renders records as bulk schedule text. The returned count is
// the number of leg records emitted after filtering; the trailer carries
// the same number. Records that cannot be rendered (an unparseable flight
// designator, a field wider than its column) fail the whole generation,
// since silently dropping or truncating a leg from a published schedule is
// worse than refusing to publish.
func Generate(opts GenerateOptions, records []sched.ScheduleRecord) (string, int, error) {
	var b strings.Builder

	header := map[string]string{
		colCarrier: opts.Carrier,
		colSeason:  opts.Season,
	}
	if err := checkWidths(headerColumns, header); err != nil {
		return "", 0, fmt.Errorf("header: %w", err)
	}
	b.WriteString(buildLine(recHeader, headerLineWidth, headerColumns, header))
	b.WriteByte('\n')

	count := 0
	for i := range records {
		rec := &records[i]
		if opts.AircraftType != "" && rec.AircraftType != opts.AircraftType {
			continue
		}
		line, err := buildLeg(rec)
		if err != nil {
			return "", 0, fmt.Errorf("record %s %s-%s: %w",
				rec.FlightNumber, rec.DepartureStation, rec.ArrivalStation, err)
		}
		b.WriteString(line)
		b.WriteByte('\n')
		count++
	}

	trailer := map[string]string{
		colCarrier:     opts.Carrier,
		colRecordCount: fmt.Sprintf("%06d", count),
	}
	if err := checkWidths(trailerColumns, trailer); err != nil {
		return "", 0, fmt.Errorf("trailer: %w", err)
	}
	b.WriteString(buildLine(recTrailer, trailerLineWidth, trailerColumns, trailer))
	b.WriteByte('\n')

	return b.String(), count, nil
}

// buildLeg renders one ScheduleRecord as a type-3 line.
func buildLeg(rec *sched.ScheduleRecord) (string, error) {
	carrier, digits, err := sched.SplitFlightNumber(rec.FlightNumber)
	if err != nil {
		return "", err
	}
	num, err := strconv.Atoi(digits)
	if err != nil {
		return "", fmt.Errorf("bad flight number %q", rec.FlightNumber)
	}

	values := map[string]string{
		colCarrier:    carrier,
		colFlight:     fmt.Sprintf("%04d", num),
		colDepStation: rec.DepartureStation,
		colSTD:        sched.FormatWireTime(rec.STD),
		colArrStation: rec.ArrivalStation,
		colSTA:        sched.FormatWireTime(rec.STA),
		colDayOffset:  fmt.Sprintf("%d", rec.ArrivalDayOffset),
		colDays:       rec.DaysOfOperation.String(),
		colAircraft:   rec.AircraftType,
		colCabin:      rec.CabinConfig,
		colService:    rec.ServiceType,
		colEffFrom:    sched.FormatWireDate(rec.EffectiveFrom),
	}
	if !rec.EffectiveTo.IsZero() {
		values[colEffTo] = sched.FormatWireDate(rec.EffectiveTo)
	}

	if err := checkWidths(legColumns, values); err != nil {
		return "", err
	}
	return buildLine(recLeg, legLineWidth, legColumns, values), nil
}
