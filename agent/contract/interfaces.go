package contract

import (
	"context"
	"time"

	statex "github.com/autopitch/callflow/agent/state"
)

// Classifier is the port to the external intent/tone classifier.
// It must tolerate an empty history tail.
type Classifier interface {
	Classify(ctx context.Context, utterance string, historyTail []statex.Turn) (Classification, error)
}

// SlotExtractor pulls structured values out of free text. Relative
// expressions resolve against the injected reference time; the extractor
// never reads the wall clock itself.
type SlotExtractor interface {
	Extract(utterance string, reference time.Time) map[string]statex.SlotValue
}

// ReplyComposer phrases the reply for a decided action. Implementations must
// be pure given identical inputs so turns can be replayed in tests.
type ReplyComposer interface {
	Compose(ctx context.Context, st *statex.ConversationState, action Action) (string, error)
}

// Calendar is the port to the meeting-booking collaborator.
type Calendar interface {
	CreateEvent(ctx context.Context, req CalendarRequest) (CalendarEvent, error)
}

// CRM is the port to the lead/outcome collaborator.
type CRM interface {
	LogOutcome(ctx context.Context, rec OutcomeRecord) error
	ListLeads(ctx context.Context) ([]statex.Lead, error)
	UpsertLead(ctx context.Context, lead statex.Lead) (statex.Lead, error)
}
