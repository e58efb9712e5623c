package asm

import (
	"strings"
	"testing"
	"time"

	"schedlink/internal/sched"
)

func TestParseTimeChange(t *testing.T) {
	raw := "ASM\nTIM\nHZ100/15MAR25\n- 0600\n+ 0630\n"

	msg := Parse(raw)
	if len(msg.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", msg.Errors)
	}
	if msg.MessageType != sched.MessageASM {
		t.Errorf("MessageType = %q, want ASM", msg.MessageType)
	}
	if msg.ActionCode != sched.ActionTim {
		t.Errorf("ActionCode = %q, want TIM", msg.ActionCode)
	}
	if msg.FlightNumber != "HZ100" {
		t.Errorf("FlightNumber = %q, want HZ100", msg.FlightNumber)
	}
	want := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if !msg.FlightDate.Equal(want) {
		t.Errorf("FlightDate = %v, want %v", msg.FlightDate, want)
	}
	ch, ok := msg.Changes[sched.FieldSTD]
	if !ok {
		t.Fatalf("no std change in %v", msg.Changes)
	}
	if ch.From != "0600" || ch.To != "0630" {
		t.Errorf("std change = %+v, want 0600 -> 0630", ch)
	}
}

func TestParseCancellation(t *testing.T) {
	msg := Parse("ASM\nCNL\nHZ100/15MAR25\n")
	if len(msg.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", msg.Errors)
	}
	if msg.ActionCode != sched.ActionCnl {
		t.Errorf("ActionCode = %q, want CNL", msg.ActionCode)
	}
	if len(msg.Changes) != 0 {
		t.Errorf("CNL should carry no changes, got %v", msg.Changes)
	}
}

func TestParseNewWithoutOldValues(t *testing.T) {
	raw := "SSM\nNEW\nHZ310\n+ SGN\n+ DAD\n+ 0900\n+ 1015\n"
	msg := Parse(raw)
	if len(msg.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", msg.Errors)
	}
	if msg.MessageType != sched.MessageSSM {
		t.Errorf("MessageType = %q, want SSM", msg.MessageType)
	}
	if !msg.FlightDate.IsZero() {
		t.Errorf("FlightDate = %v, want zero", msg.FlightDate)
	}
	wantTo := map[string]string{
		sched.FieldDepartureStation: "SGN",
		sched.FieldArrivalStation:   "DAD",
		sched.FieldSTD:              "0900",
		sched.FieldSTA:              "1015",
	}
	for f, to := range wantTo {
		ch, ok := msg.Changes[f]
		if !ok {
			t.Errorf("missing change for %s", f)
			continue
		}
		if ch.From != "" || ch.To != to {
			t.Errorf("%s change = %+v, want -> %s", f, ch, to)
		}
	}
}

func TestParseCollectsErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "empty message"},
		{"bad type", "XXX\nTIM\nHZ100/15MAR25\n", "unknown message type"},
		{"bad action", "ASM\nZZZ\nHZ100/15MAR25\n", "unknown action code"},
		{"bad flight line", "ASM\nTIM\nnot a flight\n", "bad flight line"},
		{"dangling old", "ASM\nTIM\nHZ100/15MAR25\n- 0600\n", "not followed by a new value"},
		{"stray line", "ASM\nTIM\nHZ100/15MAR25\n* 0600\n", "unrecognised line"},
		{"too many pairs", "ASM\nEQT\nHZ100/15MAR25\n- A320\n+ A321\n- X\n+ Y\n", "unexpected change line"},
	}

	for _, tt := range tests {
		msg := Parse(tt.raw)
		found := false
		for _, e := range msg.Errors {
			if strings.Contains(e, tt.want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s: errors %v do not mention %q", tt.name, msg.Errors, tt.want)
		}
	}
}

func TestGenerateParseRoundTrip(t *testing.T) {
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	intents := []Intent{
		{
			MessageType:  sched.MessageASM,
			ActionCode:   sched.ActionTim,
			FlightNumber: "HZ100",
			FlightDate:   date,
			Changes: sched.ChangeSet{
				sched.FieldSTD: {From: "0600", To: "0630"},
				sched.FieldSTA: {From: "0815", To: "0845"},
			},
		},
		{
			MessageType:  sched.MessageASM,
			ActionCode:   sched.ActionCnl,
			FlightNumber: "HZ100",
			FlightDate:   date,
			Changes:      sched.ChangeSet{},
		},
		{
			MessageType:  sched.MessageASM,
			ActionCode:   sched.ActionRin,
			FlightNumber: "HZ100",
			FlightDate:   date,
			Changes:      sched.ChangeSet{},
		},
		{
			MessageType:  sched.MessageASM,
			ActionCode:   sched.ActionEqt,
			FlightNumber: "HZ100",
			FlightDate:   date,
			Changes: sched.ChangeSet{
				sched.FieldAircraftType: {From: "A320", To: "A321"},
			},
		},
		{
			MessageType:  sched.MessageASM,
			ActionCode:   sched.ActionCon,
			FlightNumber: "HZ100",
			FlightDate:   date,
			Changes: sched.ChangeSet{
				sched.FieldCabinConfig: {From: "Y180", To: "Y186"},
			},
		},
		{
			MessageType:  sched.MessageSSM,
			ActionCode:   sched.ActionFlt,
			FlightNumber: "HZ100",
			Changes: sched.ChangeSet{
				sched.FieldFlightNumber: {From: "HZ100", To: "HZ104"},
			},
		},
		{
			MessageType:  sched.MessageSSM,
			ActionCode:   sched.ActionSkd,
			FlightNumber: "HZ205",
			Changes: sched.ChangeSet{
				sched.FieldDepartureStation: {From: "HAN", To: "HAN"},
				sched.FieldArrivalStation:   {From: "DAD", To: "CXR"},
			},
		},
	}

	for _, in := range intents {
		raw, err := Generate(in)
		if err != nil {
			t.Errorf("%s: Generate: %v", in.ActionCode, err)
			continue
		}
		msg := Parse(raw)
		if len(msg.Errors) != 0 {
			t.Errorf("%s: re-parse errors: %v", in.ActionCode, msg.Errors)
			continue
		}
		if msg.ActionCode != in.ActionCode {
			t.Errorf("%s: ActionCode came back %q", in.ActionCode, msg.ActionCode)
		}
		if msg.FlightNumber != in.FlightNumber {
			t.Errorf("%s: FlightNumber came back %q", in.ActionCode, msg.FlightNumber)
		}
		if !msg.FlightDate.Equal(in.FlightDate) {
			t.Errorf("%s: FlightDate came back %v", in.ActionCode, msg.FlightDate)
		}
		if !msg.Changes.Equal(in.Changes) {
			t.Errorf("%s: changes came back %v, want %v", in.ActionCode, msg.Changes, in.Changes)
		}
	}
}

func TestGenerateRefusesNonPrefixChanges(t *testing.T) {
	// A TIM changing only STA cannot be expressed: STD precedes it in the
	// pair order.
	_, err := Generate(Intent{
		MessageType:  sched.MessageASM,
		ActionCode:   sched.ActionTim,
		FlightNumber: "HZ100",
		FlightDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Changes: sched.ChangeSet{
			sched.FieldSTA: {From: "0815", To: "0845"},
		},
	})
	if err == nil {
		t.Fatal("expected error for non-prefix change-set")
	}
	if !strings.Contains(err.Error(), "precedes") {
		t.Errorf("error = %v", err)
	}
}

func TestGenerateRefusesForeignField(t *testing.T) {
	_, err := Generate(Intent{
		MessageType:  sched.MessageASM,
		ActionCode:   sched.ActionEqt,
		FlightNumber: "HZ100",
		Changes: sched.ChangeSet{
			sched.FieldSTD: {From: "0600", To: "0630"},
		},
	})
	if err == nil {
		t.Fatal("expected error for field outside the action's order")
	}
}
