// Package orchestrator drives one conversation session: it sequences
// classification, slot extraction, planning, action execution, and reply
// composition for each turn, and persists the resulting state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/autopitch/callflow/agent/contract"
	executorx "github.com/autopitch/callflow/agent/executor"
	nodex "github.com/autopitch/callflow/agent/nodes"
	statex "github.com/autopitch/callflow/agent/state"
)

// TurnResult is one accepted turn's outcome for the caller.
type TurnResult struct {
	Reply  string           `json:"reply"`
	Action contractx.Action `json:"action"`
	Done   bool             `json:"done"`
}

type Orchestrator struct {
	store      statex.Store
	classifier contractx.Classifier
	extractor  contractx.SlotExtractor
	executor   *executorx.Executor
	composer   contractx.ReplyComposer

	graphRunner compose.Runnable[nodex.TurnInput, nodex.TurnOutput]

	now func() time.Time
}

func New(
	store statex.Store,
	classifier contractx.Classifier,
	extractor contractx.SlotExtractor,
	exec *executorx.Executor,
	composer contractx.ReplyComposer,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if extractor == nil {
		return nil, errors.New("slot extractor is required")
	}
	if exec == nil {
		return nil, errors.New("action executor is required")
	}
	if composer == nil {
		return nil, errors.New("reply composer is required")
	}

	o := &Orchestrator{
		store:      store,
		classifier: classifier,
		extractor:  extractor,
		executor:   exec,
		composer:   composer,
		now:        time.Now,
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// StartSession creates the session for a lead and composes the opening line.
func (o *Orchestrator) StartSession(ctx context.Context, lead statex.Lead) (string, string, error) {
	if strings.TrimSpace(lead.Name) == "" {
		return "", "", fmt.Errorf("%w: lead name is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(lead.Phone) == "" {
		return "", "", fmt.Errorf("%w: lead phone is required", contractx.ErrValidation)
	}

	now := o.now().UTC()
	st, err := o.store.Create(ctx, lead, now)
	if err != nil {
		return "", "", err
	}

	greeting, err := o.composer.Compose(ctx, st, contractx.ActionNoOp)
	if err != nil {
		return "", "", err
	}
	st.AppendTurn(statex.Turn{
		Role:      statex.RoleAgent,
		Text:      greeting,
		Timestamp: now,
		Action:    string(contractx.ActionNoOp),
	})
	if err := o.store.Save(ctx, st); err != nil {
		return "", "", err
	}

	log.Info().Str("session_id", st.SessionID).Str("lead_id", st.Lead.ID).Msg("session started")
	return st.SessionID, greeting, nil
}

// ContinueSession runs one turn. Turns for the same session are serialized
// by the store's per-session lock; a second concurrent caller gets
// ErrSessionBusy rather than interleaved state.
func (o *Orchestrator) ContinueSession(ctx context.Context, sessionID string, utterance string) (TurnResult, error) {
	release, err := o.store.Acquire(sessionID)
	if err != nil {
		return TurnResult{}, mapStoreErr(err)
	}
	defer release()

	// Reject the cheap failure modes before the graph runs so callers get
	// the sentinel directly.
	if strings.TrimSpace(utterance) == "" {
		return TurnResult{}, fmt.Errorf("%w: %v", contractx.ErrValidation, nodex.ErrInvalidUtterance)
	}
	st, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return TurnResult{}, mapStoreErr(err)
	}
	if st.Done {
		return TurnResult{}, fmt.Errorf("%w: %s", contractx.ErrSessionEnded, sessionID)
	}

	out, err := o.graphRunner.Invoke(ctx, nodex.TurnInput{
		SessionID: sessionID,
		Utterance: utterance,
	})
	if err != nil {
		return TurnResult{}, mapStoreErr(err)
	}

	return TurnResult{Reply: out.Reply, Action: out.Action, Done: out.Done}, nil
}

// CancelSession ends a session on caller hangup. State persisted by already
// completed turns is untouched; the terminal outcome record is emitted once.
func (o *Orchestrator) CancelSession(ctx context.Context, sessionID string) error {
	release, err := o.store.Acquire(sessionID)
	if err != nil {
		return mapStoreErr(err)
	}
	defer release()

	st, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return mapStoreErr(err)
	}
	if st.Done {
		return nil
	}

	now := o.now().UTC()
	st.AppendTurn(statex.Turn{
		Role:      statex.RoleSystem,
		Text:      "call cancelled by caller",
		Timestamp: now,
	})
	o.executor.Cancel(ctx, st, now)

	if err := o.store.Save(ctx, st); err != nil {
		return err
	}
	log.Info().Str("session_id", sessionID).Msg("session cancelled")
	return nil
}

// SnapshotSession returns a frozen copy for monitoring readers; it never
// exposes the live state object.
func (o *Orchestrator) SnapshotSession(ctx context.Context, sessionID string) (*statex.ConversationState, error) {
	st, err := o.store.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return st, nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, statex.ErrStateNotFound), errors.Is(err, statex.ErrInvalidSession):
		return fmt.Errorf("%w: %v", contractx.ErrSessionNotFound, err)
	case errors.Is(err, statex.ErrSessionBusy):
		return fmt.Errorf("%w: %v", contractx.ErrSessionBusy, err)
	default:
		return err
	}
}
