package workflow

import (
	"fmt"

	"github.com/jaakkos/planforge/internal/domain"
)

// Op identifies which persisted flag or queue a continuation advances.
type Op string

const (
	// OpSetFlag sets the bound plan flag true on success.
	OpSetFlag Op = "set_flag"
	// OpConsumeChecklist pops the head checklist item on success; when the
	// queue empties with no pending needs-work, the bound flag flips true.
	OpConsumeChecklist Op = "consume_checklist"
	// OpResolveFeedback removes the oldest needs-work comment on success.
	OpResolveFeedback Op = "resolve_feedback"
	// OpClearRework clears the point's rework flag and re-marks it
	// implemented on success.
	OpClearRework Op = "clear_rework"
	// OpPointReview marks the point reviewed on success; failure flags rework.
	OpPointReview Op = "point_review"
	// OpPointTest marks the point tested on success; failure flags rework.
	OpPointTest Op = "point_test"
	// OpPointImplement marks the point implemented on success.
	OpPointImplement Op = "point_implement"
	// OpAcceptPlan accepts the plan on success (gated on all points
	// reviewed and tested).
	OpAcceptPlan Op = "accept_plan"
)

// Persisted-flag binding names, shared with external configuration.
const (
	BindingDescriptionsUpdated  = "plan.descriptionsUpdated"
	BindingDescriptionsReviewed = "plan.descriptionsReviewed"
	BindingArchitectureCreated  = "plan.architectureCreated"
	BindingArchitectureReviewed = "plan.architectureReviewed"
	BindingPointsCreated        = "plan.pointsCreated"
	BindingPlanReviewed         = "plan.reviewed"
)

// Continuation is the serializable completion contract attached to an action
// descriptor. The caller reports the step outcome through it instead of
// invoking an opaque closure, so continuations can be logged and tested.
type Continuation struct {
	Op      Op     `json:"op"`
	PlanID  string `json:"plan_id"`
	PointID string `json:"point_id,omitempty"`
	Binding string `json:"binding,omitempty"`
}

// setBinding flips the named persisted flag.
func setBinding(plan *domain.Plan, binding string, v bool) error {
	switch binding {
	case BindingDescriptionsUpdated:
		plan.DescriptionsUpdated = v
	case BindingDescriptionsReviewed:
		plan.DescriptionsReviewed = v
	case BindingArchitectureCreated:
		plan.ArchitectureCreated = v
	case BindingArchitectureReviewed:
		plan.ArchitectureReviewed = v
	case BindingPointsCreated:
		plan.PointsCreated = v
	case BindingPlanReviewed:
		plan.SetReviewed(v)
	default:
		return fmt.Errorf("unknown flag binding %q", binding)
	}
	return nil
}

// checkBinding reads the named persisted flag.
func checkBinding(plan *domain.Plan, binding string) (bool, error) {
	switch binding {
	case BindingDescriptionsUpdated:
		return plan.DescriptionsUpdated, nil
	case BindingDescriptionsReviewed:
		return plan.DescriptionsReviewed, nil
	case BindingArchitectureCreated:
		return plan.ArchitectureCreated, nil
	case BindingArchitectureReviewed:
		return plan.ArchitectureReviewed, nil
	case BindingPointsCreated:
		return plan.PointsCreated, nil
	case BindingPlanReviewed:
		return plan.Reviewed, nil
	default:
		return false, fmt.Errorf("unknown flag binding %q", binding)
	}
}

// ApplyDone advances plan state for a reported step outcome. info carries the
// failure feedback (or the acceptance comment for OpAcceptPlan). The caller
// persists the plan afterwards.
func ApplyDone(plan *domain.Plan, c Continuation, success bool, info string) error {
	switch c.Op {
	case OpSetFlag:
		if !success {
			return nil
		}
		return setBinding(plan, c.Binding, true)

	case OpConsumeChecklist:
		if !success {
			// Execution-phase plan review retries the same item; the
			// needs-work queue belongs to the creation phase.
			if c.Binding != BindingPlanReviewed {
				plan.SetNeedsWork(info)
			}
			return nil
		}
		_, exhausted := ConsumeHead(plan)
		if exhausted && !plan.NeedsWork {
			return setBinding(plan, c.Binding, true)
		}
		return nil

	case OpResolveFeedback:
		if success {
			plan.ResolveFeedback()
		}
		return nil

	case OpClearRework:
		pt, err := continuationPoint(plan, c)
		if err != nil {
			return err
		}
		if success {
			pt.ClearRework()
			pt.SetImplemented(true)
		}
		return nil

	case OpPointReview:
		pt, err := continuationPoint(plan, c)
		if err != nil {
			return err
		}
		if !success {
			pt.SetRework(info)
			return nil
		}
		return pt.SetReviewed(true, false)

	case OpPointTest:
		pt, err := continuationPoint(plan, c)
		if err != nil {
			return err
		}
		if !success {
			pt.SetRework(info)
			return nil
		}
		return pt.SetTested(true, false)

	case OpPointImplement:
		pt, err := continuationPoint(plan, c)
		if err != nil {
			return err
		}
		if success {
			pt.SetImplemented(true)
		}
		return nil

	case OpAcceptPlan:
		if !success {
			return nil
		}
		return plan.Accept(info)

	default:
		return fmt.Errorf("unknown continuation op %q", c.Op)
	}
}

// CheckComplete reports whether the continuation's step already completed,
// without forcing another evaluation round-trip. Only ops reducible to a
// single persisted boolean are checkable.
func CheckComplete(plan *domain.Plan, c Continuation) (bool, error) {
	switch c.Op {
	case OpSetFlag, OpConsumeChecklist:
		return checkBinding(plan, c.Binding)
	case OpClearRework:
		pt, err := continuationPoint(plan, c)
		if err != nil {
			return false, err
		}
		return !pt.NeedRework, nil
	case OpPointReview:
		pt, err := continuationPoint(plan, c)
		if err != nil {
			return false, err
		}
		return pt.Reviewed, nil
	case OpPointTest:
		pt, err := continuationPoint(plan, c)
		if err != nil {
			return false, err
		}
		return pt.Tested, nil
	case OpPointImplement:
		pt, err := continuationPoint(plan, c)
		if err != nil {
			return false, err
		}
		return pt.Implemented, nil
	case OpAcceptPlan:
		return plan.Accepted, nil
	default:
		return false, fmt.Errorf("continuation op %q is not checkable", c.Op)
	}
}

func continuationPoint(plan *domain.Plan, c Continuation) (*domain.PlanPoint, error) {
	pt := plan.Point(c.PointID)
	if pt == nil {
		return nil, &domain.NotFoundError{Kind: "point", ID: c.PointID}
	}
	return pt, nil
}
