package nodes

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

// LoadSession loads the live state for the turn. A done session accepts no
// further turns.
func LoadSession(ctx context.Context, in *TurnState, store statex.Store) (*TurnState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.SessionID)
	if err != nil {
		if errors.Is(err, statex.ErrStateNotFound) {
			return nil, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, in.SessionID)
		}
		return nil, err
	}
	if st.Done {
		return nil, fmt.Errorf("%w: %s", contractx.ErrSessionEnded, in.SessionID)
	}

	in.Session = st
	return in, nil
}
