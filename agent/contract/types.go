package contract

import (
	"time"

	statex "github.com/autopitch/callflow/agent/state"
)

// Action is the closed set of next-steps the planner can pick for a turn.
type Action string

const (
	ActionAskClarify      Action = "ask_clarify"
	ActionProvideInfo     Action = "provide_info"
	ActionProposeMeeting  Action = "propose_meeting"
	ActionConfirmMeeting  Action = "confirm_meeting"
	ActionHandleObjection Action = "handle_objection"
	ActionEscalateHuman   Action = "escalate_human"
	ActionEndCall         Action = "end_call"
	ActionNoOp            Action = "no_op"
)

// Actions lists every member of the closed set, in planner priority order
// where that matters (tests iterate over it).
var Actions = []Action{
	ActionAskClarify,
	ActionProvideInfo,
	ActionProposeMeeting,
	ActionConfirmMeeting,
	ActionHandleObjection,
	ActionEscalateHuman,
	ActionEndCall,
	ActionNoOp,
}

// Classification is the reconciled (intent, tone) pair the classifier port
// returns for one utterance. The port owns reconciliation between whatever
// heuristic and generative signals it blends; callers only see one pair.
type Classification struct {
	Intent     statex.Intent `json:"intent"`
	Tone       statex.Tone   `json:"tone"`
	Confidence float64       `json:"confidence"`
}

// Attendee identifies one calendar event participant.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CalendarRequest asks the calendar collaborator for one event.
type CalendarRequest struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// CalendarEvent is the booked event reference returned on success.
type CalendarEvent struct {
	EventID string `json:"event_id"`
	Link    string `json:"link,omitempty"`
}

// OutcomeRecord is the single append-only record emitted when a session
// reaches its terminal transition. Exactly one per ended session.
type OutcomeRecord struct {
	SessionID  string       `json:"session_id"`
	LeadID     string       `json:"lead_id"`
	Outcome    string       `json:"outcome"`
	FinalPhase statex.Phase `json:"final_phase"`
	EventID    string       `json:"event_id,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	EndedAt    time.Time    `json:"ended_at"`
}

// Outcome values written to the outcome log.
const (
	OutcomeMeetingBooked = "meeting_booked"
	OutcomeNotInterested = "not_interested"
	OutcomeEscalated     = "escalated"
	OutcomeCancelled     = "cancelled"
	OutcomeCompleted     = "completed"
)
