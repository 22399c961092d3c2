package nodes

import (
	"context"
	"fmt"

	contractx "github.com/autopitch/callflow/agent/contract"
	executorx "github.com/autopitch/callflow/agent/executor"
)

// ExecuteAction runs the handler for the planned action. The effective
// action may differ when a side effect fails and the handler falls back.
func ExecuteAction(ctx context.Context, in *TurnState, exec *executorx.Executor) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	res := exec.Execute(ctx, in.Session, in.Planned, in.Now)
	in.Effective = res.Action
	in.SideEffects = res.SideEffects
	return in, nil
}
