package ssim

import (
	"fmt"
	"strconv"
	"strings"

	"schedlink/internal/sched"
)

// Result holds everything decoded from one bulk schedule file. Errors are
// collected per line; one malformed line never blocks its neighbours.
type Result struct {
	Carrier string
	Season  string
	Records []sched.ScheduleRecord
	Errors  []sched.ParseError
}

// Parse decodes bulk schedule text. It never fails as a whole: the worst
// input yields an empty record set and a list of line errors.
func Parse(content string) Result {
	var res Result
	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		num := i + 1

		switch line[0] {
		case recHeader:
			f := sliceColumns(line, headerColumns)
			res.Carrier = f[colCarrier]
			res.Season = f[colSeason]
		case recLeg:
			rec, err := parseLeg(line)
			if err != nil {
				res.Errors = append(res.Errors, sched.ParseError{
					Line: num, Message: err.Error(), RawText: line,
				})
				continue
			}
			res.Records = append(res.Records, rec)
		case recTrailer:
			f := sliceColumns(line, trailerColumns)
			count, err := strconv.Atoi(f[colRecordCount])
			if err != nil {
				res.Errors = append(res.Errors, sched.ParseError{
					Line: num, Message: fmt.Sprintf("bad trailer record count %q", f[colRecordCount]), RawText: line,
				})
				continue
			}
			if count != len(res.Records) {
				res.Errors = append(res.Errors, sched.ParseError{
					Line:    num,
					Message: fmt.Sprintf("trailer claims %d leg records, parsed %d", count, len(res.Records)),
					RawText: line,
				})
			}
		default:
			res.Errors = append(res.Errors, sched.ParseError{
				Line: num, Message: fmt.Sprintf("unrecognised record type %q", string(line[0])), RawText: line,
			})
		}
	}
	return res
}

// parseLeg decodes one type-3 line into a ScheduleRecord.
func parseLeg(line string) (sched.ScheduleRecord, error) {
	var rec sched.ScheduleRecord
	f := sliceColumns(line, legColumns)

	carrier := f[colCarrier]
	digits := f[colFlight]
	if carrier == "" || digits == "" {
		return rec, fmt.Errorf("missing flight designator")
	}
	if _, err := strconv.Atoi(digits); err != nil {
		return rec, fmt.Errorf("bad flight number %q", digits)
	}
	rec.FlightNumber = sched.JoinFlightNumber(carrier, digits)

	rec.DepartureStation = strings.ToUpper(f[colDepStation])
	rec.ArrivalStation = strings.ToUpper(f[colArrStation])

	std, err := sched.ParseWireTime(f[colSTD])
	if err != nil {
		return rec, fmt.Errorf("STD: %w", err)
	}
	rec.STD = std

	sta, err := sched.ParseWireTime(f[colSTA])
	if err != nil {
		return rec, fmt.Errorf("STA: %w", err)
	}
	rec.STA = sta

	if v := f[colDayOffset]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rec, fmt.Errorf("bad arrival day offset %q", v)
		}
		rec.ArrivalDayOffset = n
	}

	days, err := sched.ParseDaySet(f[colDays])
	if err != nil {
		return rec, err
	}
	rec.DaysOfOperation = days

	rec.AircraftType = f[colAircraft]
	rec.CabinConfig = f[colCabin]
	rec.ServiceType = f[colService]

	from, err := sched.ParseWireDate(f[colEffFrom])
	if err != nil {
		return rec, fmt.Errorf("effective-from: %w", err)
	}
	rec.EffectiveFrom = from

	if v := f[colEffTo]; v != "" {
		to, err := sched.ParseWireDate(v)
		if err != nil {
			return rec, fmt.Errorf("effective-to: %w", err)
		}
		rec.EffectiveTo = to
	}

	if err := rec.Validate(); err != nil {
		return rec, err
	}
	return rec, nil
}
