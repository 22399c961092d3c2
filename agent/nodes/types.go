// Package nodes holds the per-turn pipeline steps the orchestrator graph
// sequences: validate, load, classify+extract, plan, execute, compose, save.
package nodes

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/autopitch/callflow/agent/contract"
	executorx "github.com/autopitch/callflow/agent/executor"
	statex "github.com/autopitch/callflow/agent/state"
)

var (
	ErrInvalidUtterance = errors.New("utterance is empty")
	ErrInvalidSession   = errors.New("session id is empty")
)

// TurnInput is one inbound utterance for an existing session.
type TurnInput struct {
	SessionID string
	Utterance string
}

// TurnOutput is what one accepted turn returns to the transport layer.
type TurnOutput struct {
	Reply  string
	Action contractx.Action
	Done   bool
}

// TurnState flows through the graph for one turn.
type TurnState struct {
	SessionID string
	Utterance string
	Now       time.Time

	Session *statex.ConversationState

	Classification contractx.Classification
	// Degraded marks that this turn fell back to the previous turn's
	// intent/tone because the classifier call failed or timed out.
	Degraded bool

	// Planned is the planner's pick; Effective is what actually ran after
	// any executor fallback (e.g. a failed booking degrades to ask_clarify).
	Planned     contractx.Action
	Effective   contractx.Action
	SideEffects []executorx.SideEffect

	Reply string
}

// ValidateTurn rejects malformed input and stamps the turn's clock.
func ValidateTurn(in TurnInput, nowFn func() time.Time) (*TurnState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	utterance := strings.TrimSpace(in.Utterance)
	if utterance == "" {
		return nil, ErrInvalidUtterance
	}
	return &TurnState{
		SessionID: sessionID,
		Utterance: utterance,
		Now:       nowFn().UTC(),
	}, nil
}
