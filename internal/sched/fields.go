package sched

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldValue returns the canonical string form of the named field, or
// false for an unknown field name. Times are "HH:MM", dates DDMMMYY,
// days the 7-character wire string.
func (r *ScheduleRecord) FieldValue(field string) (string, bool) {
	switch field {
	case FieldFlightNumber:
		return r.FlightNumber, true
	case FieldDepartureStation:
		return r.DepartureStation, true
	case FieldArrivalStation:
		return r.ArrivalStation, true
	case FieldSTD:
		return r.STD, true
	case FieldSTA:
		return r.STA, true
	case FieldDays:
		return r.DaysOfOperation.String(), true
	case FieldAircraftType:
		return r.AircraftType, true
	case FieldCabinConfig:
		return r.CabinConfig, true
	case FieldServiceType:
		return r.ServiceType, true
	case FieldEffectiveFrom:
		return FormatWireDate(r.EffectiveFrom), true
	case FieldEffectiveTo:
		if r.EffectiveTo.IsZero() {
			return "", true
		}
		return FormatWireDate(r.EffectiveTo), true
	case FieldArrivalDayOffset:
		return strconv.Itoa(r.ArrivalDayOffset), true
	}
	return "", false
}

// ApplyField sets the named field from its string form, validating and
// normalising on the way in. Times are accepted as either "0630" or
// "06:30" since messages carry the 4-digit form.
func (r *ScheduleRecord) ApplyField(field, value string) error {
	switch field {
	case FieldFlightNumber:
		if _, _, err := SplitFlightNumber(value); err != nil {
			return err
		}
		r.FlightNumber = value
	case FieldDepartureStation:
		v := strings.ToUpper(value)
		if len(v) != 3 {
			return fmt.Errorf("bad station %q", value)
		}
		r.DepartureStation = v
	case FieldArrivalStation:
		v := strings.ToUpper(value)
		if len(v) != 3 {
			return fmt.Errorf("bad station %q", value)
		}
		r.ArrivalStation = v
	case FieldSTD:
		t, err := NormalizeTimeOfDay(value)
		if err != nil {
			return err
		}
		r.STD = t
	case FieldSTA:
		t, err := NormalizeTimeOfDay(value)
		if err != nil {
			return err
		}
		r.STA = t
	case FieldDays:
		d, err := ParseDaySet(value)
		if err != nil {
			return err
		}
		r.DaysOfOperation = d
	case FieldAircraftType:
		r.AircraftType = value
	case FieldCabinConfig:
		r.CabinConfig = value
	case FieldServiceType:
		r.ServiceType = value
	case FieldEffectiveFrom:
		t, err := ParseWireDate(value)
		if err != nil {
			return err
		}
		r.EffectiveFrom = t
	case FieldEffectiveTo:
		if value == "" {
			r.EffectiveTo = time.Time{}
			return nil
		}
		t, err := ParseWireDate(value)
		if err != nil {
			return err
		}
		r.EffectiveTo = t
	case FieldArrivalDayOffset:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("bad day offset %q", value)
		}
		r.ArrivalDayOffset = n
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// NormalizeTimeOfDay accepts "0630" or "06:30" and returns "06:30".
func NormalizeTimeOfDay(value string) (string, error) {
	if len(value) == 4 {
		return ParseWireTime(value)
	}
	if !ValidTimeOfDay(value) {
		return "", fmt.Errorf("bad time %q", value)
	}
	return value, nil
}
