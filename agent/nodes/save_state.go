package nodes

import (
	"context"
	"fmt"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

// SaveState validates and persists the turn's resulting state.
func SaveState(ctx context.Context, in *TurnState, store statex.Store) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}

	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	return in, nil
}

// FinalizeTurn shapes the graph output for the transport layer.
func FinalizeTurn(in *TurnState) (TurnOutput, error) {
	if in == nil || in.Session == nil {
		return TurnOutput{}, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	return TurnOutput{
		Reply:  in.Reply,
		Action: in.Effective,
		Done:   in.Session.Done,
	}, nil
}
