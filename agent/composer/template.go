// Package composer provides reply composer port implementations. The
// template composer is pure: identical state and action always produce the
// identical text, which makes turns replayable in tests.
package composer

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

const companyPitch = "Autopitch AI is an automated sales assistant that handles lead qualification, books demos, and manages follow-ups for sales teams."

// Template phrases each action from canned copy. It never exposes internal
// error detail: the calendar-failure path reads as an alternate-time ask.
type Template struct{}

func NewTemplate() *Template {
	return &Template{}
}

func (t *Template) Compose(ctx context.Context, st *statex.ConversationState, action contractx.Action) (string, error) {
	if st == nil {
		return "", fmt.Errorf("%w: conversation state is nil", contractx.ErrValidation)
	}
	name := firstName(st.Lead.Name)

	switch action {
	case contractx.ActionNoOp:
		if len(st.History) == 0 {
			return fmt.Sprintf("Hi %s, this is Alex calling from Autopitch AI. Do you have a quick minute?", name), nil
		}
		return "I'm still here whenever you're ready.", nil

	case contractx.ActionProvideInfo:
		return companyPitch + " Would you like to hear how that could work for your team?", nil

	case contractx.ActionProposeMeeting:
		if s := st.Slot(statex.SlotMeetingTime); s.Status == statex.SlotAmbiguous && s.Suggested != "" {
			return fmt.Sprintf("Great. Would %s work for a quick demo?", s.Suggested), nil
		}
		return "Great. When would be a good time this week for a quick 15-minute demo?", nil

	case contractx.ActionConfirmMeeting:
		s := st.Slot(statex.SlotMeetingTime)
		if s.Status == statex.SlotValid {
			return fmt.Sprintf("Perfect. I've got you down for %s. You'll receive a calendar invite shortly. Looking forward to chatting!",
				s.Time.Format("Monday, January 2 at 3:04 PM")), nil
		}
		return "Perfect, let me get that booked for you.", nil

	case contractx.ActionAskClarify:
		if st.Phase == statex.PhaseProposeMeeting {
			// Alternate-time ask, also used after a booking attempt fails.
			return "Hmm, that slot isn't working out on my end. Is there another time this week that suits you?", nil
		}
		return "Sorry, I didn't quite catch that. Could you say a bit more about what works for you?", nil

	case contractx.ActionHandleObjection:
		return "Totally fair to be cautious. We work with over fifty B2B teams, and the demo is just fifteen minutes with no commitment. Would it help to see it in action?", nil

	case contractx.ActionEscalateHuman:
		return fmt.Sprintf("I hear you, %s. Let me have one of our team members reach out directly to answer everything properly.", name), nil

	case contractx.ActionEndCall:
		return "Totally understood. I'll make sure we don't keep pinging you. Thanks for your time, and have a great day!", nil

	default:
		return "", fmt.Errorf("%w: unknown action %q", contractx.ErrValidation, action)
	}
}

func firstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return "there"
	}
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
