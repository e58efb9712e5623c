// Package sched defines the canonical flight schedule record and the
// structures shared by the SSIM and ASM/SSM codecs.
package sched

import (
	"errors"
	"fmt"
	"time"
)

// ErrAmbiguousFlight is returned by schedule stores when a flight/date
// lookup matches more than one record. Resolution surfaces ambiguity, it
// never picks one.
var ErrAmbiguousFlight = errors.New("ambiguous flight match")

// ScheduleRecord is one scheduled flight leg, as seen in a bulk import or
// as currently held in the schedule store.
type ScheduleRecord struct {
	FlightNumber     string    `json:"flight_number"`     // carrier designator + number, e.g. "HZ100"
	DepartureStation string    `json:"departure_station"` // 3-letter code
	ArrivalStation   string    `json:"arrival_station"`   // 3-letter code
	STD              string    `json:"std"`               // local time of day, "HH:MM"
	STA              string    `json:"sta"`               // local time of day, "HH:MM"
	DaysOfOperation  DaySet    `json:"days_of_operation"`
	AircraftType     string    `json:"aircraft_type"`
	CabinConfig      string    `json:"cabin_config,omitempty"` // aircraft configuration/version, e.g. "Y180"
	ServiceType      string    `json:"service_type"`
	EffectiveFrom    time.Time `json:"effective_from"`
	EffectiveTo      time.Time `json:"effective_to"` // zero = open-ended
	ArrivalDayOffset int       `json:"arrival_day_offset"`
}

// Identity is the key used to match records during reconciliation. Two
// records with the same identity but differing other fields are an update;
// identical in all fields they are unchanged.
type Identity struct {
	FlightNumber     string
	DepartureStation string
	ArrivalStation   string
	EffectiveFrom    string // "2006-01-02"
}

// Identity returns the record's reconciliation key.
func (r *ScheduleRecord) Identity() Identity {
	return Identity{
		FlightNumber:     r.FlightNumber,
		DepartureStation: r.DepartureStation,
		ArrivalStation:   r.ArrivalStation,
		EffectiveFrom:    r.EffectiveFrom.Format("2006-01-02"),
	}
}

// Validate checks the record's invariants.
func (r *ScheduleRecord) Validate() error {
	if r.FlightNumber == "" {
		return fmt.Errorf("missing flight number")
	}
	if len(r.DepartureStation) != 3 {
		return fmt.Errorf("bad departure station %q", r.DepartureStation)
	}
	if len(r.ArrivalStation) != 3 {
		return fmt.Errorf("bad arrival station %q", r.ArrivalStation)
	}
	if !ValidTimeOfDay(r.STD) {
		return fmt.Errorf("bad STD %q", r.STD)
	}
	if !ValidTimeOfDay(r.STA) {
		return fmt.Errorf("bad STA %q", r.STA)
	}
	if r.DaysOfOperation.Empty() {
		return fmt.Errorf("empty days of operation")
	}
	// Width limits match the fixed-column wire format.
	if len(r.AircraftType) > 4 {
		return fmt.Errorf("aircraft type %q longer than 4 characters", r.AircraftType)
	}
	if len(r.CabinConfig) > 4 {
		return fmt.Errorf("cabin config %q longer than 4 characters", r.CabinConfig)
	}
	if len(r.ServiceType) > 1 {
		return fmt.Errorf("service type %q longer than 1 character", r.ServiceType)
	}
	if r.ArrivalDayOffset < 0 || r.ArrivalDayOffset > 9 {
		return fmt.Errorf("arrival day offset %d out of range 0-9", r.ArrivalDayOffset)
	}
	if r.EffectiveFrom.IsZero() {
		return fmt.Errorf("missing effective-from date")
	}
	if !r.EffectiveTo.IsZero() && r.EffectiveTo.Before(r.EffectiveFrom) {
		return fmt.Errorf("effective-to %s before effective-from %s",
			r.EffectiveTo.Format("02Jan06"), r.EffectiveFrom.Format("02Jan06"))
	}
	return nil
}

// Equal reports whether two records agree in every field.
func (r *ScheduleRecord) Equal(o *ScheduleRecord) bool {
	return r.FlightNumber == o.FlightNumber &&
		r.DepartureStation == o.DepartureStation &&
		r.ArrivalStation == o.ArrivalStation &&
		r.STD == o.STD &&
		r.STA == o.STA &&
		r.DaysOfOperation == o.DaysOfOperation &&
		r.AircraftType == o.AircraftType &&
		r.CabinConfig == o.CabinConfig &&
		r.ServiceType == o.ServiceType &&
		r.EffectiveFrom.Equal(o.EffectiveFrom) &&
		r.EffectiveTo.Equal(o.EffectiveTo) &&
		r.ArrivalDayOffset == o.ArrivalDayOffset
}

// ParseError records one malformed line from a bulk file. Parsing collects
// these and continues; a bad line never blocks its neighbours.
type ParseError struct {
	Line    int    `json:"line"` // 1-based
	Message string `json:"message"`
	RawText string `json:"raw_text"`
}

func (e ParseError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
