package nodes

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

// ComposeReply phrases the effective action and appends the agent entry to
// history with its turn annotations.
func ComposeReply(ctx context.Context, in *TurnState, composer contractx.ReplyComposer) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}

	reply, err := composer.Compose(ctx, in.Session, in.Effective)
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("%w: composer returned empty reply", contractx.ErrValidation)
	}

	in.Reply = reply
	in.Session.AppendTurn(statex.Turn{
		Role:      statex.RoleAgent,
		Text:      reply,
		Timestamp: in.Now,
		Intent:    in.Classification.Intent,
		Tone:      in.Classification.Tone,
		Action:    string(in.Effective),
		Degraded:  in.Degraded,
	})
	return in, nil
}
