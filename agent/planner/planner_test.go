package planner

import (
	"testing"
	"time"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

func validSlot() map[string]statex.SlotValue {
	return map[string]statex.SlotValue{
		statex.SlotMeetingTime: {
			Status: statex.SlotValid,
			Time:   time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC),
		},
	}
}

func ambiguousSlot() map[string]statex.SlotValue {
	return map[string]statex.SlotValue{
		statex.SlotMeetingTime: {Status: statex.SlotAmbiguous, Raw: "next week"},
	}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   Input
		want contractx.Action
	}{
		{
			name: "done session never acts",
			in:   Input{Done: true, Intent: statex.IntentNotInterested, Tone: statex.ToneSkeptical},
			want: contractx.ActionNoOp,
		},
		{
			name: "confirming with valid time books",
			in:   Input{Phase: statex.PhaseProposeMeeting, Intent: statex.IntentConfirming, Tone: statex.ToneNeutral, Slots: validSlot()},
			want: contractx.ActionConfirmMeeting,
		},
		{
			name: "confirming with ambiguous time clarifies",
			in:   Input{Phase: statex.PhaseProposeMeeting, Intent: statex.IntentConfirming, Tone: statex.ToneNeutral, Slots: ambiguousSlot()},
			want: contractx.ActionAskClarify,
		},
		{
			name: "confirming with no slot clarifies",
			in:   Input{Phase: statex.PhaseProposeMeeting, Intent: statex.IntentConfirming, Tone: statex.ToneNeutral},
			want: contractx.ActionAskClarify,
		},
		{
			name: "not interested ends the call",
			in:   Input{Phase: statex.PhaseQualifying, Intent: statex.IntentNotInterested, Tone: statex.ToneNeutral},
			want: contractx.ActionEndCall,
		},
		{
			name: "not interested beats skeptical tone",
			in:   Input{Phase: statex.PhaseQualifying, Intent: statex.IntentNotInterested, Tone: statex.ToneSkeptical},
			want: contractx.ActionEndCall,
		},
		{
			name: "question gets info in any phase",
			in:   Input{Phase: statex.PhaseObjection, Intent: statex.IntentQuestion, Tone: statex.ToneNeutral},
			want: contractx.ActionProvideInfo,
		},
		{
			name: "interest during intro proposes a meeting",
			in:   Input{Phase: statex.PhaseIntro, Intent: statex.IntentInterested, Tone: statex.ToneFriendly},
			want: contractx.ActionProposeMeeting,
		},
		{
			name: "interest after intro falls through to clarify",
			in:   Input{Phase: statex.PhaseQualifying, Intent: statex.IntentInterested, Tone: statex.ToneNeutral},
			want: contractx.ActionAskClarify,
		},
		{
			name: "first skeptical turn handles the objection",
			in:   Input{Phase: statex.PhaseQualifying, Intent: statex.IntentOther, Tone: statex.ToneSkeptical},
			want: contractx.ActionHandleObjection,
		},
		{
			name: "skeptical after objection handled escalates",
			in:   Input{Phase: statex.PhaseObjection, Intent: statex.IntentOther, Tone: statex.ToneSkeptical, ObjectionHandled: true},
			want: contractx.ActionEscalateHuman,
		},
		{
			name: "confirming with valid time beats skeptical tone",
			in:   Input{Phase: statex.PhaseProposeMeeting, Intent: statex.IntentConfirming, Tone: statex.ToneSkeptical, Slots: validSlot()},
			want: contractx.ActionConfirmMeeting,
		},
		{
			name: "busy defaults to clarify",
			in:   Input{Phase: statex.PhaseQualifying, Intent: statex.IntentBusy, Tone: statex.ToneRushed},
			want: contractx.ActionAskClarify,
		},
		{
			name: "nothing matched defaults to clarify",
			in:   Input{Phase: statex.PhaseProvideInfo, Intent: statex.IntentOther, Tone: statex.ToneNeutral},
			want: contractx.ActionAskClarify,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := Decide(c.in); got != c.want {
				t.Fatalf("Decide() = %q, want %q", got, c.want)
			}
		})
	}
}

// Every (phase, intent, tone) combination must resolve to a member of the
// closed action set, with no panic and no empty result.
func TestDecideIsTotal(t *testing.T) {
	t.Parallel()

	known := make(map[contractx.Action]bool, len(contractx.Actions))
	for _, a := range contractx.Actions {
		known[a] = true
	}

	for _, phase := range statex.Phases {
		for _, intent := range statex.Intents {
			for _, tone := range statex.Tones {
				for _, handled := range []bool{false, true} {
					in := Input{Phase: phase, Intent: intent, Tone: tone, ObjectionHandled: handled}
					got := Decide(in)
					if !known[got] {
						t.Fatalf("Decide(%+v) returned unknown action %q", in, got)
					}
					if again := Decide(in); again != got {
						t.Fatalf("Decide(%+v) is not deterministic: %q then %q", in, got, again)
					}
				}
			}
		}
	}
}

func TestInputFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	st := statex.NewConversationState("s1", statex.Lead{ID: "l1", Name: "Jane"}, now)
	st.Phase = statex.PhaseObjection
	st.ObjectionHandled = true
	st.MergeSlot(statex.SlotMeetingTime, statex.SlotValue{Status: statex.SlotAmbiguous, Raw: "friday"})

	in := InputFor(st, contractx.Classification{Intent: statex.IntentQuestion, Tone: statex.ToneSkeptical})
	if in.Phase != statex.PhaseObjection || !in.ObjectionHandled {
		t.Fatalf("InputFor dropped state fields: %+v", in)
	}
	if in.Intent != statex.IntentQuestion || in.Tone != statex.ToneSkeptical {
		t.Fatalf("InputFor dropped classification: %+v", in)
	}
	if in.Slots[statex.SlotMeetingTime].Raw != "friday" {
		t.Fatalf("InputFor dropped slots: %+v", in.Slots)
	}
}
