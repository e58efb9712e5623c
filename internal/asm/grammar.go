// Package asm encodes and decodes ASM/SSM free-text schedule change
// messages.
//
// A message is a few lines: the message type token, the action code, the
// flight designator with an optional date, then old/new change pairs:
//
//	ASM
//	TIM
//	HZ100/15MAR25
//	- 0600
//	+ 0630
//
// Change pairs carry no field names; the field each pair refers to is
// implied by its position in the action code's fixed field order below.
// Parser and generator share the table, which keeps them symmetric.
package asm

import "schedlink/internal/sched"

// changeFields gives, per action code, the fixed order in which change
// pairs are read and written. Pairs consume the list from the front, so a
// message changing a later field must also carry the earlier ones.
var changeFields = map[sched.ActionCode][]string{
	sched.ActionNew: {
		sched.FieldDepartureStation,
		sched.FieldArrivalStation,
		sched.FieldSTD,
		sched.FieldSTA,
		sched.FieldDays,
		sched.FieldAircraftType,
		sched.FieldCabinConfig,
		sched.FieldServiceType,
		sched.FieldEffectiveFrom,
		sched.FieldEffectiveTo,
	},
	sched.ActionTim: {sched.FieldSTD, sched.FieldSTA},
	sched.ActionCnl: {},
	sched.ActionEqt: {sched.FieldAircraftType},
	sched.ActionCon: {sched.FieldCabinConfig},
	sched.ActionRin: {},
	sched.ActionRpl: {
		sched.FieldDepartureStation,
		sched.FieldArrivalStation,
		sched.FieldSTD,
		sched.FieldSTA,
		sched.FieldDays,
		sched.FieldAircraftType,
		sched.FieldCabinConfig,
		sched.FieldServiceType,
		sched.FieldEffectiveFrom,
		sched.FieldEffectiveTo,
	},
	sched.ActionFlt: {sched.FieldFlightNumber},
	sched.ActionSkd: {
		sched.FieldDepartureStation,
		sched.FieldArrivalStation,
		sched.FieldDays,
		sched.FieldServiceType,
		sched.FieldEffectiveFrom,
		sched.FieldEffectiveTo,
	},
}
