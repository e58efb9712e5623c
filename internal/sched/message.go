package sched

import "time"

// MessageType distinguishes ad-hoc (ASM) from standard (SSM) schedule
// messages. Both share the same grammar; the type is carried through to
// the log.
type MessageType string

const (
	MessageASM MessageType = "ASM"
	MessageSSM MessageType = "SSM"
)

// ActionCode is the operation a schedule message encodes.
type ActionCode string

const (
	ActionNew ActionCode = "NEW" // new flight creation
	ActionTim ActionCode = "TIM" // departure/arrival time change
	ActionCnl ActionCode = "CNL" // cancellation of a dated instance
	ActionEqt ActionCode = "EQT" // equipment (aircraft type) change
	ActionCon ActionCode = "CON" // cabin configuration change
	ActionRin ActionCode = "RIN" // reinstatement of a cancelled instance
	ActionRpl ActionCode = "RPL" // full replace of schedule attributes
	ActionFlt ActionCode = "FLT" // flight number change
	ActionSkd ActionCode = "SKD" // general schedule-attribute change
)

// ValidActionCode reports whether s is one of the nine known codes.
func ValidActionCode(s string) bool {
	switch ActionCode(s) {
	case ActionNew, ActionTim, ActionCnl, ActionEqt, ActionCon,
		ActionRin, ActionRpl, ActionFlt, ActionSkd:
		return true
	}
	return false
}

// Field names used in change-sets and field-level store updates.
const (
	FieldFlightNumber     = "flight_number"
	FieldDepartureStation = "departure_station"
	FieldArrivalStation   = "arrival_station"
	FieldSTD              = "std"
	FieldSTA              = "sta"
	FieldDays             = "days_of_operation"
	FieldAircraftType     = "aircraft_type"
	FieldCabinConfig      = "cabin_config"
	FieldServiceType      = "service_type"
	FieldEffectiveFrom    = "effective_from"
	FieldEffectiveTo      = "effective_to"
	FieldArrivalDayOffset = "arrival_day_offset"
)

// FieldChange is one field's old and new value. From is empty when the
// prior value is unknown (a pure addition) rather than being compared.
type FieldChange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

// ChangeSet maps field names to their old/new values.
type ChangeSet map[string]FieldChange

// Equal reports whether two change-sets carry the same fields and values.
func (c ChangeSet) Equal(o ChangeSet) bool {
	if len(c) != len(o) {
		return false
	}
	for k, v := range c {
		if o[k] != v {
			return false
		}
	}
	return true
}

// ParsedMessage is the structured form of one ASM/SSM message.
type ParsedMessage struct {
	MessageType  MessageType `json:"message_type"`
	ActionCode   ActionCode  `json:"action_code"`
	FlightNumber string      `json:"flight_number"`
	FlightDate   time.Time   `json:"flight_date"` // zero when the message carried none
	Changes      ChangeSet   `json:"changes"`
	Errors       []string    `json:"errors,omitempty"`
	RawMessage   string      `json:"raw_message"`
}
