package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

const historyTailSize = 6

// ClassifyAndExtract runs the classifier and the slot extractor concurrently
// and joins on both before the planner may run. A classifier failure does
// not abort the turn: the turn continues on the previous turn's intent/tone
// and is marked degraded.
func ClassifyAndExtract(
	ctx context.Context,
	in *TurnState,
	classifier contractx.Classifier,
	extractor contractx.SlotExtractor,
) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}

	tail := in.Session.HistoryTail(historyTailSize)

	var (
		cls    contractx.Classification
		clsErr error
		slots  map[string]statex.SlotValue
	)

	// Join point, not a race: both branches must return before planning.
	// Neither branch propagates an error through the group because one
	// failing must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		cls, clsErr = classifier.Classify(ctx, in.Utterance, tail)
		return nil
	})
	g.Go(func() error {
		slots = extractor.Extract(in.Utterance, in.Now)
		return nil
	})
	_ = g.Wait()

	if clsErr != nil {
		log.Warn().Err(clsErr).
			Str("session_id", in.SessionID).
			Msg("classifier failed, continuing degraded on previous intent/tone")
		cls = contractx.Classification{
			Intent: in.Session.Intent,
			Tone:   in.Session.Tone,
		}
		in.Degraded = true
	}

	cls.Intent = statex.NormalizeIntent(string(cls.Intent))
	cls.Tone = statex.NormalizeTone(string(cls.Tone))
	in.Classification = cls

	// Last-classified pair is overwritten each turn.
	in.Session.Intent = cls.Intent
	in.Session.Tone = cls.Tone

	for name, v := range slots {
		in.Session.MergeSlot(name, v)
	}

	in.Session.AppendTurn(statex.Turn{
		Role:      statex.RoleUser,
		Text:      in.Utterance,
		Timestamp: in.Now,
	})
	return in, nil
}
