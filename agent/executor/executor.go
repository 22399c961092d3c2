// Package executor runs the per-action handlers. Each handler mutates the
// conversation state (phase, slots, history) and may call the calendar or
// CRM collaborators. Side effects are attempted at most once per turn; retry
// policy belongs to the collaborator clients, not here.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

// SideEffect records one external call made while executing an action.
type SideEffect struct {
	Tool   string `json:"tool"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Result is what one action execution produced. Action is the effective
// action after any fallback (a failed booking degrades to ask_clarify), and
// is what the composer phrases.
type Result struct {
	Action      contractx.Action
	SideEffects []SideEffect
}

type Executor struct {
	calendar contractx.Calendar
	crm      contractx.CRM
}

func New(calendar contractx.Calendar, crm contractx.CRM) (*Executor, error) {
	if calendar == nil {
		return nil, fmt.Errorf("%w: calendar port is required", contractx.ErrValidation)
	}
	if crm == nil {
		return nil, fmt.Errorf("%w: crm port is required", contractx.ErrValidation)
	}
	return &Executor{calendar: calendar, crm: crm}, nil
}

// Execute runs the handler for action against st. st is mutated in place;
// the caller owns persistence.
func (e *Executor) Execute(ctx context.Context, st *statex.ConversationState, action contractx.Action, now time.Time) Result {
	switch action {
	case contractx.ActionConfirmMeeting:
		return e.confirmMeeting(ctx, st, now)
	case contractx.ActionEndCall:
		return e.endCall(ctx, st, now, outcomeFor(st))
	case contractx.ActionAskClarify:
		if st.Phase != statex.PhaseIntro && st.Phase != statex.PhaseProposeMeeting {
			st.Phase = statex.PhaseQualifying
		}
	case contractx.ActionProvideInfo:
		// Answering a question does not derail the flow; the phase holds.
	case contractx.ActionProposeMeeting:
		st.Phase = statex.PhaseProposeMeeting
	case contractx.ActionHandleObjection:
		st.Phase = statex.PhaseObjection
		st.ObjectionHandled = true
	case contractx.ActionEscalateHuman:
		st.Phase = statex.PhaseClosing
		st.Escalated = true
	case contractx.ActionNoOp:
		// No phase change, no I/O.
	}
	st.Touch(now)
	return Result{Action: action}
}

// Cancel ends the session on caller hangup. Completed turns stay persisted;
// the terminal outcome record is still emitted exactly once.
func (e *Executor) Cancel(ctx context.Context, st *statex.ConversationState, now time.Time) Result {
	return e.endCall(ctx, st, now, contractx.OutcomeCancelled)
}

func (e *Executor) confirmMeeting(ctx context.Context, st *statex.ConversationState, now time.Time) Result {
	slot := st.Slot(statex.SlotMeetingTime)
	if slot.Status != statex.SlotValid {
		// Planner only picks confirm_meeting with a valid slot; if the slot
		// vanished, re-ask rather than book garbage.
		st.Phase = statex.PhaseProposeMeeting
		st.Touch(now)
		return Result{Action: contractx.ActionAskClarify}
	}

	req := contractx.CalendarRequest{
		Summary:     "Demo Call - " + st.Lead.Name,
		Description: "Autopitch AI demo call",
		Start:       slot.Time,
		End:         slot.Time.Add(time.Hour),
	}
	if st.Lead.Email != "" {
		req.Attendees = []contractx.Attendee{{Name: st.Lead.Name, Email: st.Lead.Email}}
	}

	event, err := e.calendar.CreateEvent(ctx, req)
	if err != nil {
		// Recorded, not raised: fall back to asking for an alternate time.
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("calendar booking failed")
		st.ResetSlot(statex.SlotMeetingTime)
		st.Phase = statex.PhaseProposeMeeting
		st.AppendTurn(statex.Turn{
			Role:      statex.RoleSystem,
			Text:      "calendar booking failed, asking for an alternate time",
			Timestamp: now.UTC(),
		})
		st.Touch(now)
		return Result{
			Action:      contractx.ActionAskClarify,
			SideEffects: []SideEffect{{Tool: "calendar.create_event", OK: false, Detail: err.Error()}},
		}
	}

	st.EventID = event.EventID
	st.EventLink = event.Link
	st.Phase = statex.PhaseClosing
	st.AppendTurn(statex.Turn{
		Role:      statex.RoleSystem,
		Text:      fmt.Sprintf("booked event %s for %s", event.EventID, slot.Time.Format(time.RFC3339)),
		Timestamp: now.UTC(),
	})
	st.Touch(now)

	effects := []SideEffect{{Tool: "calendar.create_event", OK: true, Detail: event.EventID}}

	// Keep the CRM lead record current with the booking. Best effort; the
	// single outcome record is emitted at the terminal transition.
	lead := st.Lead
	lead.Notes = "demo booked for " + slot.Time.Format(time.RFC3339)
	if _, err := e.crm.UpsertLead(ctx, lead); err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("crm lead update failed")
		effects = append(effects, SideEffect{Tool: "crm.upsert_lead", OK: false, Detail: err.Error()})
	} else {
		effects = append(effects, SideEffect{Tool: "crm.upsert_lead", OK: true})
	}

	return Result{Action: contractx.ActionConfirmMeeting, SideEffects: effects}
}

func (e *Executor) endCall(ctx context.Context, st *statex.ConversationState, now time.Time, outcome string) Result {
	st.Done = true
	st.Phase = statex.PhaseEnded
	st.Touch(now)

	if st.OutcomeLogged {
		return Result{Action: contractx.ActionEndCall}
	}
	st.OutcomeLogged = true

	rec := contractx.OutcomeRecord{
		SessionID:  st.SessionID,
		LeadID:     st.Lead.ID,
		Outcome:    outcome,
		FinalPhase: st.Phase,
		EventID:    st.EventID,
		EndedAt:    now.UTC(),
	}
	// Best effort: a logging failure is reported but never blocks ending
	// the call.
	if err := e.crm.LogOutcome(ctx, rec); err != nil {
		log.Error().Err(err).Str("session_id", st.SessionID).Msg("crm outcome log failed")
		return Result{
			Action:      contractx.ActionEndCall,
			SideEffects: []SideEffect{{Tool: "crm.log_outcome", OK: false, Detail: err.Error()}},
		}
	}
	return Result{
		Action:      contractx.ActionEndCall,
		SideEffects: []SideEffect{{Tool: "crm.log_outcome", OK: true}},
	}
}

func outcomeFor(st *statex.ConversationState) string {
	switch {
	case st.EventID != "":
		return contractx.OutcomeMeetingBooked
	case st.Escalated:
		return contractx.OutcomeEscalated
	case st.Intent == statex.IntentNotInterested:
		return contractx.OutcomeNotInterested
	default:
		return contractx.OutcomeCompleted
	}
}
