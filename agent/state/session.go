package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Phase is the single active stage of a conversation.
type Phase string

const (
	PhaseIntro          Phase = "intro"
	PhaseQualifying     Phase = "qualifying"
	PhaseProposeMeeting Phase = "propose_meeting"
	PhaseConfirmMeeting Phase = "confirm_meeting"
	PhaseProvideInfo    Phase = "provide_info"
	PhaseObjection      Phase = "objection"
	PhaseClosing        Phase = "closing"
	PhaseEnded          Phase = "ended"
)

// Phases lists every member of the closed set.
var Phases = []Phase{
	PhaseIntro, PhaseQualifying, PhaseProposeMeeting, PhaseConfirmMeeting,
	PhaseProvideInfo, PhaseObjection, PhaseClosing, PhaseEnded,
}

// Intent is the last-classified prospect intent; overwritten each turn.
type Intent string

const (
	IntentInterested    Intent = "interested"
	IntentNotInterested Intent = "not_interested"
	IntentBusy          Intent = "busy"
	IntentQuestion      Intent = "question"
	IntentConfirming    Intent = "confirming"
	IntentOther         Intent = "other"
)

var Intents = []Intent{
	IntentInterested, IntentNotInterested, IntentBusy,
	IntentQuestion, IntentConfirming, IntentOther,
}

// NormalizeIntent maps anything outside the closed set to IntentOther.
// Unknown or low-confidence classifications are never left unset.
func NormalizeIntent(s string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentInterested, IntentNotInterested, IntentBusy, IntentQuestion, IntentConfirming:
		return Intent(strings.ToLower(strings.TrimSpace(s)))
	default:
		return IntentOther
	}
}

// Tone is the last-detected prospect tone; overwritten each turn.
type Tone string

const (
	ToneFriendly  Tone = "friendly"
	ToneRushed    Tone = "rushed"
	ToneSkeptical Tone = "skeptical"
	ToneNeutral   Tone = "neutral"
)

var Tones = []Tone{ToneFriendly, ToneRushed, ToneSkeptical, ToneNeutral}

// NormalizeTone maps anything outside the closed set to ToneNeutral.
func NormalizeTone(s string) Tone {
	switch Tone(strings.ToLower(strings.TrimSpace(s))) {
	case ToneFriendly, ToneRushed, ToneSkeptical:
		return Tone(strings.ToLower(strings.TrimSpace(s)))
	default:
		return ToneNeutral
	}
}

// SlotStatus marks how trustworthy an extracted value is. Ambiguous results
// are surfaced as such, never silently promoted to valid.
type SlotStatus string

const (
	SlotValid     SlotStatus = "valid"
	SlotAmbiguous SlotStatus = "ambiguous"
	SlotAbsent    SlotStatus = "absent"
)

// SlotMeetingTime is the slot name for the candidate meeting date-time.
const SlotMeetingTime = "meeting_time"

// SlotValue is one extracted structured value with its validity tag.
type SlotValue struct {
	Status SlotStatus `json:"status"`
	Time   time.Time  `json:"time,omitempty"`
	Raw    string     `json:"raw,omitempty"`
	// Suggested carries a concrete proposal ("tomorrow at 2pm") when the
	// utterance had a date part but no usable time part.
	Suggested string `json:"suggested,omitempty"`
}

// Role identifies who produced a history entry.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Turn is one append-only history entry.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	// Annotations set on agent entries.
	Intent   Intent `json:"intent,omitempty"`
	Tone     Tone   `json:"tone,omitempty"`
	Action   string `json:"action,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Lead is the prospect identity. Immutable once a session starts.
type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
	ErrSessionDone     = errors.New("session state is read-only after done")
)

// ConversationState is the unit of mutable truth for one conversation.
// Only the orchestrator's single-writer turn sequence mutates it; readers
// get frozen snapshots from the store.
type ConversationState struct {
	SessionID string `json:"session_id"`
	Phase     Phase  `json:"phase"`
	Lead      Lead   `json:"lead"`

	Intent Intent `json:"intent"`
	Tone   Tone   `json:"tone"`

	Slots map[string]SlotValue `json:"slots,omitempty"`

	// ObjectionHandled is set once a skeptical turn has been answered, so
	// the planner does not loop on the objection path.
	ObjectionHandled bool `json:"objection_handled,omitempty"`

	// Escalated marks that a human hand-off was promised; the terminal
	// outcome records it.
	Escalated bool `json:"escalated,omitempty"`

	Done bool `json:"done"`

	History []Turn `json:"conversation_history"`

	// Booked event reference, set on a successful confirm_meeting.
	EventID   string `json:"event_id,omitempty"`
	EventLink string `json:"event_link,omitempty"`

	// OutcomeLogged guards the exactly-once outcome record at the terminal
	// transition.
	OutcomeLogged bool `json:"outcome_logged,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewConversationState(sessionID string, lead Lead, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		Phase:     PhaseIntro,
		Lead:      lead,
		Intent:    IntentOther,
		Tone:      ToneNeutral,
		Slots:     make(map[string]SlotValue, 4),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *ConversationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// EnsureSlotsMap makes sure s.Slots is initialized.
func (s *ConversationState) EnsureSlotsMap() {
	if s.Slots == nil {
		s.Slots = make(map[string]SlotValue, 4)
	}
}

// Slot returns the named slot; a missing entry reads as absent.
func (s *ConversationState) Slot(name string) SlotValue {
	if s == nil || s.Slots == nil {
		return SlotValue{Status: SlotAbsent}
	}
	if v, ok := s.Slots[name]; ok {
		return v
	}
	return SlotValue{Status: SlotAbsent}
}

// MergeSlot folds one extraction result into the state. A slot that already
// holds a valid value is never overwritten by a later extraction; the only
// way to replace it is an explicit ResetSlot (confirmed reschedule).
func (s *ConversationState) MergeSlot(name string, v SlotValue) {
	if v.Status == SlotAbsent {
		return
	}
	s.EnsureSlotsMap()
	cur, ok := s.Slots[name]
	if ok && cur.Status == SlotValid {
		return
	}
	if ok && cur.Status == SlotAmbiguous && v.Status == SlotAmbiguous {
		// Newer ambiguity wins between equals; it reflects the latest turn.
		s.Slots[name] = v
		return
	}
	s.Slots[name] = v
}

// ResetSlot clears a slot so a fresh value can be captured. Used on the
// reschedule path after a calendar failure.
func (s *ConversationState) ResetSlot(name string) {
	if s == nil || s.Slots == nil {
		return
	}
	delete(s.Slots, name)
}

// AppendTurn appends one history entry. History is append-only; entries are
// never reordered or truncated.
func (s *ConversationState) AppendTurn(t Turn) {
	s.History = append(s.History, t)
}

// HistoryTail returns up to n most recent history entries for context
// windows. The returned slice is a copy; history itself is untouched.
func (s *ConversationState) HistoryTail(n int) []Turn {
	if s == nil || n <= 0 || len(s.History) == 0 {
		return nil
	}
	start := len(s.History) - n
	if start < 0 {
		start = 0
	}
	tail := make([]Turn, len(s.History)-start)
	copy(tail, s.History[start:])
	return tail
}

// Clone returns a deep copy, used for frozen snapshots and store isolation.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	if s.Slots != nil {
		out.Slots = make(map[string]SlotValue, len(s.Slots))
		for k, v := range s.Slots {
			out.Slots[k] = v
		}
	}
	if s.History != nil {
		out.History = make([]Turn, len(s.History))
		copy(out.History, s.History)
	}
	return &out
}

func (s *ConversationState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if !isKnownPhase(s.Phase) {
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	if s.Done && s.Phase != PhaseEnded {
		return fmt.Errorf("done session must be in phase %q, got %q", PhaseEnded, s.Phase)
	}
	for name, v := range s.Slots {
		switch v.Status {
		case SlotValid, SlotAmbiguous, SlotAbsent:
		default:
			return fmt.Errorf("slot %q has unknown status %q", name, v.Status)
		}
		if v.Status == SlotValid && name == SlotMeetingTime && v.Time.IsZero() {
			return fmt.Errorf("slot %q is valid but carries no time", name)
		}
	}
	return nil
}

func isKnownPhase(p Phase) bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}
