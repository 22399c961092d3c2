// Package planner decides the next conversational move. This is deliberately
// a decision table over closed enums, not a model call: identical inputs
// always yield the identical action, so the whole intent x tone x phase
// cross-product can be unit-tested.
package planner

import (
	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

// Input is everything Decide is allowed to look at. It carries no clock and
// no I/O handles; slot validity (including the future-time check) is settled
// by the extractor before the table runs.
type Input struct {
	Phase            statex.Phase
	Intent           statex.Intent
	Tone             statex.Tone
	ObjectionHandled bool
	Done             bool
	Slots            map[string]statex.SlotValue
}

type rule struct {
	name   string
	match  func(in Input) bool
	action contractx.Action
}

// table is evaluated top to bottom, first match wins.
var table = []rule{
	{
		name: "done_session_noop",
		match: func(in Input) bool {
			return in.Done
		},
		action: contractx.ActionNoOp,
	},
	{
		name: "confirming_with_time",
		match: func(in Input) bool {
			return in.Intent == statex.IntentConfirming && slotValid(in.Slots, statex.SlotMeetingTime)
		},
		action: contractx.ActionConfirmMeeting,
	},
	{
		name: "not_interested",
		match: func(in Input) bool {
			return in.Intent == statex.IntentNotInterested
		},
		action: contractx.ActionEndCall,
	},
	{
		name: "question",
		match: func(in Input) bool {
			return in.Intent == statex.IntentQuestion
		},
		action: contractx.ActionProvideInfo,
	},
	{
		name: "intro_interest",
		match: func(in Input) bool {
			return in.Phase == statex.PhaseIntro && in.Intent == statex.IntentInterested
		},
		action: contractx.ActionProposeMeeting,
	},
	{
		name: "first_objection",
		match: func(in Input) bool {
			return in.Tone == statex.ToneSkeptical && !in.ObjectionHandled
		},
		action: contractx.ActionHandleObjection,
	},
	{
		name: "repeat_objection",
		match: func(in Input) bool {
			return in.Tone == statex.ToneSkeptical && in.ObjectionHandled
		},
		action: contractx.ActionEscalateHuman,
	},
}

// Decide maps one turn's joined classification onto the next action.
func Decide(in Input) contractx.Action {
	for _, r := range table {
		if r.match(in) {
			return r.action
		}
	}
	return contractx.ActionAskClarify
}

// InputFor builds the planner input from a session plus the current turn's
// classification. Slots are read from the state after the turn's extraction
// has been merged.
func InputFor(st *statex.ConversationState, cls contractx.Classification) Input {
	in := Input{
		Intent: cls.Intent,
		Tone:   cls.Tone,
	}
	if st != nil {
		in.Phase = st.Phase
		in.ObjectionHandled = st.ObjectionHandled
		in.Done = st.Done
		in.Slots = st.Slots
	}
	return in
}

func slotValid(slots map[string]statex.SlotValue, name string) bool {
	if slots == nil {
		return false
	}
	v, ok := slots[name]
	return ok && v.Status == statex.SlotValid && !v.Time.IsZero()
}
