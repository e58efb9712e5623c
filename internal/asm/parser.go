package asm

import (
	"fmt"
	"regexp"
	"strings"

	"schedlink/internal/sched"
)

// flightDateRe matches the flight identity line: designator, optionally
// followed by /DDMMMYY. Examples: "HZ100/15MAR25", "HZ100".
var flightDateRe = regexp.MustCompile(`^([A-Z][A-Z0-9]{1,2}\d{1,4})(?:/(\d{2}[A-Z]{3}\d{2}))?$`)

// Parse decodes one ASM/SSM message. It never fails as a whole: lines that
// do not match the grammar are appended to Errors and parsing continues,
// the same resilience contract the bulk parser follows.
func Parse(raw string) sched.ParsedMessage {
	msg := sched.ParsedMessage{
		Changes:    sched.ChangeSet{},
		RawMessage: raw,
	}

	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) == 0 {
		msg.Errors = append(msg.Errors, "empty message")
		return msg
	}

	switch lines[0] {
	case string(sched.MessageASM):
		msg.MessageType = sched.MessageASM
	case string(sched.MessageSSM):
		msg.MessageType = sched.MessageSSM
	default:
		msg.Errors = append(msg.Errors, fmt.Sprintf("unknown message type %q", lines[0]))
	}

	if len(lines) < 2 {
		msg.Errors = append(msg.Errors, "missing action code")
		return msg
	}
	if !sched.ValidActionCode(lines[1]) {
		msg.Errors = append(msg.Errors, fmt.Sprintf("unknown action code %q", lines[1]))
		return msg
	}
	msg.ActionCode = sched.ActionCode(lines[1])

	if len(lines) < 3 {
		msg.Errors = append(msg.Errors, "missing flight line")
		return msg
	}
	if m := flightDateRe.FindStringSubmatch(lines[2]); m != nil {
		msg.FlightNumber = m[1]
		if m[2] != "" {
			date, err := sched.ParseWireDate(m[2])
			if err != nil {
				msg.Errors = append(msg.Errors, fmt.Sprintf("flight line: %v", err))
			} else {
				msg.FlightDate = date
			}
		}
	} else {
		msg.Errors = append(msg.Errors, fmt.Sprintf("bad flight line %q", lines[2]))
	}

	parseChanges(&msg, lines[3:])
	return msg
}

// parseChanges consumes the old/new pair lines, assigning each pair to the
// next field in the action code's fixed order.
func parseChanges(msg *sched.ParsedMessage, lines []string) {
	fields := changeFields[msg.ActionCode]
	idx := 0
	pendingFrom := ""
	hasPending := false

	for _, line := range lines {
		switch {
		case line == "-" || strings.HasPrefix(line, "- "):
			if hasPending {
				msg.Errors = append(msg.Errors, fmt.Sprintf("old value %q not followed by a new value", pendingFrom))
			}
			pendingFrom = strings.TrimSpace(strings.TrimPrefix(line, "-"))
			hasPending = true
		case line == "+" || strings.HasPrefix(line, "+ "):
			value := strings.TrimSpace(strings.TrimPrefix(line, "+"))
			if idx >= len(fields) {
				msg.Errors = append(msg.Errors, fmt.Sprintf("unexpected change line %q", line))
			} else {
				msg.Changes[fields[idx]] = sched.FieldChange{From: pendingFrom, To: value}
				idx++
			}
			pendingFrom = ""
			hasPending = false
		default:
			msg.Errors = append(msg.Errors, fmt.Sprintf("unrecognised line %q", line))
		}
	}

	if hasPending {
		msg.Errors = append(msg.Errors, fmt.Sprintf("old value %q not followed by a new value", pendingFrom))
	}
}
