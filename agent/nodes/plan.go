package nodes

import (
	"fmt"

	contractx "github.com/autopitch/callflow/agent/contract"
	plannerx "github.com/autopitch/callflow/agent/planner"
)

// PlanAction runs the decision table on the joined classification.
func PlanAction(in *TurnState) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	in.Planned = plannerx.Decide(plannerx.InputFor(in.Session, in.Classification))
	return in, nil
}
