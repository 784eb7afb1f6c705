package workflow

import (
	"log"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/domain"
	"github.com/jaakkos/planforge/internal/policy"
)

// Result is the action descriptor returned by Evaluate: the single next
// required step, its rendered instruction, and the continuation contract.
type Result struct {
	IsDone          bool          `json:"is_done"`
	NextStepPrompt  string        `json:"next_step_prompt"`
	FailedStep      Step          `json:"failed_step,omitempty"`
	FailedPoints    []string      `json:"failed_points,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	RecommendedRole string        `json:"recommended_role,omitempty"`
	Done            *Continuation `json:"done,omitempty"`
	Complete        *Continuation `json:"complete,omitempty"`
}

// Engine evaluates plans against the two-phase priority chain. One engine is
// constructed per process and passed by handle; it owns no state beyond its
// collaborators.
type Engine struct {
	svc    *app.PlanService
	logger *log.Logger
}

// NewEngine creates an evaluation engine over the plan service.
func NewEngine(svc *app.PlanService, logger *log.Logger) *Engine {
	return &Engine{svc: svc, logger: logger}
}

// Evaluate classifies the plan's phase and runs the priority chain, returning
// the first unmet condition as an action descriptor. It may persist idempotent
// bookkeeping (creation-step tag, lazy checklist initialization): calling it
// twice with no intervening mutation yields an identical descriptor.
func (e *Engine) Evaluate(planID string) (*Result, error) {
	var result *Result
	err := e.svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
		pol := e.svc.Policy()
		if inCreationPhase(p) {
			result = evalCreation(p, pol, logf)
		} else {
			result = evalExecution(p, pol)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Printf("evaluate %s: step=%s done=%v", planID, result.FailedStep, result.IsDone)
	return result, nil
}

// ReportDone applies a continuation outcome and persists the plan.
func (e *Engine) ReportDone(c Continuation, success bool, info string) error {
	return e.svc.Update(c.PlanID, func(p *domain.Plan, logf app.LogFunc) error {
		if err := ApplyDone(p, c, success, info); err != nil {
			return err
		}
		outcome := "failed"
		if success {
			outcome = "succeeded"
		}
		detail := string(c.Op)
		if c.PointID != "" {
			detail += " point " + c.PointID
		}
		logf("step_"+outcome, detail)
		return nil
	})
}

// CheckComplete polls a continuation's completion flag without mutating.
func (e *Engine) CheckComplete(c Continuation) (bool, error) {
	var done bool
	err := e.svc.Query(c.PlanID, func(p *domain.Plan) error {
		var err error
		done, err = CheckComplete(p, c)
		return err
	})
	return done, err
}

// inCreationPhase classifies the plan. Once the creation-step tag reaches
// complete the plan stays in the execution phase; later rework never reverts
// the classification.
func inCreationPhase(p *domain.Plan) bool {
	if p.CreationStep == domain.StepCreationComplete {
		return false
	}
	return true
}

// enterCreationStep records the in-progress creation step, clearing the
// checklist queue when the sub-phase changes so the next review step
// reinitializes it.
func enterCreationStep(p *domain.Plan, step domain.CreationStep, logf app.LogFunc) {
	if p.CreationStep == step {
		return
	}
	p.CreationStep = step
	p.Checklist = nil
	logf("creation_step", string(step))
}

// evalCreation runs the creation-phase priority chain: first unmet condition wins.
func evalCreation(p *domain.Plan, pol *policy.Policy, logf app.LogFunc) *Result {
	wf := pol.Workflow()

	// 0. Pending feedback routes back into whichever step it interrupted.
	if p.NeedsWork {
		step := reworkStepFor(p.CreationStep)
		return &Result{
			NextStepPrompt:  Render(TemplateFor(pol, step), RenderContext{Plan: p}),
			FailedStep:      step,
			Reason:          p.OldestFeedback(),
			RecommendedRole: RoleFor(pol, step),
			Done:            &Continuation{Op: OpResolveFeedback, PlanID: p.ID},
		}
	}

	// 1. Descriptions written.
	if !p.DescriptionsUpdated {
		enterCreationStep(p, domain.StepDescriptionsUpdate, logf)
		return flagResult(p, pol, StepUpdateDescriptions)
	}

	// 2. Descriptions reviewed, checklist-gated.
	if !p.DescriptionsReviewed {
		enterCreationStep(p, domain.StepDescriptionsReview, logf)
		if !InitializeChecklist(p, Expand(wf.DescriptionsChecklist)) {
			// Nothing to review; the flag flips immediately.
			p.DescriptionsReviewed = true
			logf("descriptions_reviewed", "empty checklist")
		} else {
			return checklistResult(p, pol, StepReviewDescriptions)
		}
	}

	// 3. Architecture document attached.
	if !p.ArchitectureCreated || p.Architecture == nil {
		enterCreationStep(p, domain.StepArchitectureCreate, logf)
		return flagResult(p, pol, StepCreateArchitecture)
	}

	// 4. Architecture structurally sound. No checklist is consumed here;
	// validation re-derives on the next evaluation.
	if err := ValidateArchitecture(p.Architecture); err != nil {
		return &Result{
			NextStepPrompt:  Render(TemplateFor(pol, StepFixArchitecture), RenderContext{Plan: p}),
			FailedStep:      StepFixArchitecture,
			Reason:          err.Error(),
			RecommendedRole: RoleFor(pol, StepFixArchitecture),
		}
	}

	// 5. Architecture reviewed, checklist-gated.
	if !p.ArchitectureReviewed {
		enterCreationStep(p, domain.StepArchitectureReview, logf)
		if !InitializeChecklist(p, Expand(wf.ArchitectureChecklist)) {
			p.ArchitectureReviewed = true
			logf("architecture_reviewed", "empty checklist")
		} else {
			return checklistResult(p, pol, StepReviewArchitecture)
		}
	}

	// 6. Points exist.
	if !p.PointsCreated || len(p.Points) == 0 {
		enterCreationStep(p, domain.StepPointsCreate, logf)
		return flagResult(p, pol, StepCreatePoints)
	}

	// 7. Points structurally sound.
	if issue := ValidatePoints(p); issue != nil {
		return &Result{
			NextStepPrompt:  Render(TemplateFor(pol, StepFixPoints), RenderContext{Plan: p, Point: p.Point(issue.PointID)}),
			FailedStep:      StepFixPoints,
			FailedPoints:    []string{issue.PointID},
			Reason:          issue.Reason,
			RecommendedRole: RoleFor(pol, StepFixPoints),
		}
	}

	// 8. Creation is complete; the plan moves to the execution phase for good.
	enterCreationStep(p, domain.StepCreationComplete, logf)
	return &Result{
		NextStepPrompt:  Render(TemplateFor(pol, StepCreationComplete), RenderContext{Plan: p}),
		FailedStep:      StepCreationComplete,
		RecommendedRole: RoleFor(pol, StepCreationComplete),
	}
}

// evalExecution runs the execution-phase priority chain. The plan-level
// needs-work flag belongs to the creation phase and is not consulted here.
func evalExecution(p *domain.Plan, pol *policy.Policy) *Result {
	wf := pol.Workflow()

	// 0. Re-review validation failures surface as plan-review failures.
	if !p.Reviewed {
		if issue := ValidatePoints(p); issue != nil {
			return &Result{
				NextStepPrompt:  Render(TemplateFor(pol, StepFixPoints), RenderContext{Plan: p, Point: p.Point(issue.PointID)}),
				FailedStep:      StepPlanReview,
				FailedPoints:    []string{issue.PointID},
				Reason:          issue.Reason,
				RecommendedRole: RoleFor(pol, StepPlanReview),
			}
		}
	}

	// 1–4. Point lifecycle: first offending point only, single instruction
	// at a time.
	if pt := firstPoint(p, func(pt *domain.PlanPoint) bool { return pt.NeedRework }); pt != nil {
		return pointResult(p, pol, StepPointRework, pt, OpClearRework)
	}
	if pt := firstPoint(p, func(pt *domain.PlanPoint) bool { return pt.Implemented && !pt.Reviewed }); pt != nil {
		return pointResult(p, pol, StepPointReview, pt, OpPointReview)
	}
	if pt := firstPoint(p, func(pt *domain.PlanPoint) bool { return pt.Implemented && !pt.Tested }); pt != nil {
		return pointResult(p, pol, StepPointTest, pt, OpPointTest)
	}
	if pt := firstPoint(p, func(pt *domain.PlanPoint) bool { return !pt.Implemented }); pt != nil {
		return pointResult(p, pol, StepPointImplement, pt, OpPointImplement)
	}

	// 5. Plan-level review, checklist-gated.
	if !p.Reviewed {
		if !InitializeChecklist(p, BuildReviewChecklist(p, wf.PointReviewChecklist, wf.PlanReviewChecklist)) {
			p.SetReviewed(true)
		} else {
			return checklistResult(p, pol, StepPlanReview)
		}
	}

	// 6. Acceptance.
	if !p.Accepted {
		return &Result{
			NextStepPrompt:  Render(TemplateFor(pol, StepPlanAccept), RenderContext{Plan: p}),
			FailedStep:      StepPlanAccept,
			RecommendedRole: RoleFor(pol, StepPlanAccept),
			Done:            &Continuation{Op: OpAcceptPlan, PlanID: p.ID},
			Complete:        &Continuation{Op: OpAcceptPlan, PlanID: p.ID},
		}
	}

	// 7. Nothing left.
	return &Result{
		IsDone:          true,
		NextStepPrompt:  Render(TemplateFor(pol, StepDone), RenderContext{Plan: p}),
		FailedStep:      StepDone,
		RecommendedRole: RoleFor(pol, StepDone),
	}
}

// reworkStepFor routes pending feedback back to the creation step it interrupted.
func reworkStepFor(step domain.CreationStep) Step {
	switch step {
	case domain.StepArchitectureCreate, domain.StepArchitectureReview:
		return StepReworkArchitecture
	case domain.StepPointsCreate:
		return StepReworkPoints
	default:
		return StepReworkDescriptions
	}
}

// flagResult builds the descriptor for a simple flag-bound instruction step.
func flagResult(p *domain.Plan, pol *policy.Policy, step Step) *Result {
	c := &Continuation{Op: OpSetFlag, PlanID: p.ID, Binding: BindingFor(pol, step)}
	return &Result{
		NextStepPrompt:  Render(TemplateFor(pol, step), RenderContext{Plan: p}),
		FailedStep:      step,
		RecommendedRole: RoleFor(pol, step),
		Done:            c,
		Complete:        c,
	}
}

// checklistResult builds the descriptor for the head item of a review checklist.
func checklistResult(p *domain.Plan, pol *policy.Policy, step Step) *Result {
	c := &Continuation{Op: OpConsumeChecklist, PlanID: p.ID, Binding: BindingFor(pol, step)}
	return &Result{
		NextStepPrompt:  Render(TemplateFor(pol, step), RenderContext{Plan: p, ChecklistItem: p.Checklist[0]}),
		FailedStep:      step,
		Reason:          p.Checklist[0],
		RecommendedRole: RoleFor(pol, step),
		Done:            c,
		Complete:        c,
	}
}

// pointResult builds the descriptor for a point-lifecycle step.
func pointResult(p *domain.Plan, pol *policy.Policy, step Step, pt *domain.PlanPoint, op Op) *Result {
	c := &Continuation{Op: op, PlanID: p.ID, PointID: pt.ID}
	return &Result{
		NextStepPrompt:  Render(TemplateFor(pol, step), RenderContext{Plan: p, Point: pt}),
		FailedStep:      step,
		FailedPoints:    []string{pt.ID},
		Reason:          pointReason(step, pt),
		RecommendedRole: RoleFor(pol, step),
		Done:            c,
		Complete:        c,
	}
}

func pointReason(step Step, pt *domain.PlanPoint) string {
	switch step {
	case StepPointRework:
		return pt.ReworkReason
	case StepPointReview:
		return "point " + pt.ID + " is implemented but not reviewed"
	case StepPointTest:
		return "point " + pt.ID + " is implemented but not tested"
	default:
		return "point " + pt.ID + " is not implemented"
	}
}

func firstPoint(p *domain.Plan, pred func(pt *domain.PlanPoint) bool) *domain.PlanPoint {
	for i := range p.Points {
		if pred(&p.Points[i]) {
			return &p.Points[i]
		}
	}
	return nil
}
