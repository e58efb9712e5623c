package asm

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"schedlink/internal/sched"
)

// Intent is an outbound message to be rendered.
type Intent struct {
	MessageType  sched.MessageType
	ActionCode   sched.ActionCode
	FlightNumber string
	FlightDate   time.Time // zero = no date on the flight line
	Changes      sched.ChangeSet
}

// Generate renders an intent as message text. It is the exact inverse of
// Parse: feeding the output back reproduces the action code, flight
// identity and change-set.
//
// Because change pairs are positional, the changed fields must form a
// prefix of the action's field order (a TIM changing only STA must carry
// an unchanged STD pair first); anything else cannot be expressed in the
// grammar and is refused.
func Generate(in Intent) (string, error) {
	if in.MessageType != sched.MessageASM && in.MessageType != sched.MessageSSM {
		return "", fmt.Errorf("bad message type %q", in.MessageType)
	}
	if !sched.ValidActionCode(string(in.ActionCode)) {
		return "", fmt.Errorf("bad action code %q", in.ActionCode)
	}
	if _, _, err := sched.SplitFlightNumber(in.FlightNumber); err != nil {
		return "", err
	}

	fields := changeFields[in.ActionCode]
	if len(fields) == 0 && len(in.Changes) > 0 {
		return "", fmt.Errorf("%s carries no change lines", in.ActionCode)
	}
	for i, f := range fields {
		if _, ok := in.Changes[f]; ok {
			continue
		}
		// First absent field: everything after it must be absent too.
		for _, later := range fields[i+1:] {
			if _, ok := in.Changes[later]; ok {
				return "", fmt.Errorf("%s change-set includes %s but not %s, which precedes it",
					in.ActionCode, later, f)
			}
		}
		break
	}
	for f := range in.Changes {
		if !slices.Contains(fields, f) {
			return "", fmt.Errorf("field %s cannot be carried by %s", f, in.ActionCode)
		}
	}

	var b strings.Builder
	b.WriteString(string(in.MessageType))
	b.WriteByte('\n')
	b.WriteString(string(in.ActionCode))
	b.WriteByte('\n')
	b.WriteString(in.FlightNumber)
	if !in.FlightDate.IsZero() {
		b.WriteByte('/')
		b.WriteString(sched.FormatWireDate(in.FlightDate))
	}
	b.WriteByte('\n')

	for _, f := range fields {
		ch, ok := in.Changes[f]
		if !ok {
			break
		}
		if ch.From != "" {
			b.WriteString("- ")
			b.WriteString(ch.From)
			b.WriteByte('\n')
		}
		b.WriteString("+ ")
		b.WriteString(ch.To)
		b.WriteByte('\n')
	}

	return b.String(), nil
}
