package workflow

import (
	"testing"

	"github.com/jaakkos/planforge/internal/domain"
)

func TestApplyDoneSetFlag(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	c := Continuation{Op: OpSetFlag, PlanID: "p1", Binding: BindingDescriptionsUpdated}

	if err := ApplyDone(plan, c, false, ""); err != nil {
		t.Fatalf("ApplyDone failure: %v", err)
	}
	if plan.DescriptionsUpdated {
		t.Error("failed step must not set the flag")
	}
	if err := ApplyDone(plan, c, true, ""); err != nil {
		t.Fatalf("ApplyDone success: %v", err)
	}
	if !plan.DescriptionsUpdated {
		t.Error("flag not set")
	}

	done, err := CheckComplete(plan, c)
	if err != nil || !done {
		t.Errorf("CheckComplete = (%v, %v), want (true, nil)", done, err)
	}
}

func TestApplyDoneConsumeChecklistFlipsFlagOnExhaustion(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	plan.Checklist = []string{"one", "two"}
	c := Continuation{Op: OpConsumeChecklist, PlanID: "p1", Binding: BindingDescriptionsReviewed}

	if err := ApplyDone(plan, c, true, ""); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	if plan.DescriptionsReviewed {
		t.Error("flag flipped before exhaustion")
	}
	if err := ApplyDone(plan, c, true, ""); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	if !plan.DescriptionsReviewed {
		t.Error("flag should flip when checklist empties")
	}
}

func TestApplyDoneConsumeChecklistFailureSetsNeedsWorkInCreation(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	plan.Checklist = []string{"one"}
	c := Continuation{Op: OpConsumeChecklist, PlanID: "p1", Binding: BindingDescriptionsReviewed}

	if err := ApplyDone(plan, c, false, "description is vague"); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	if !plan.NeedsWork || plan.OldestFeedback() != "description is vague" {
		t.Errorf("needs-work not recorded: %v %v", plan.NeedsWork, plan.NeedsWorkComments)
	}
	if len(plan.Checklist) != 1 {
		t.Error("failed item must stay queued")
	}
}

func TestApplyDoneConsumeChecklistFailureDoesNotFlagExecutionReview(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	plan.Checklist = []string{"[plan] check docs"}
	c := Continuation{Op: OpConsumeChecklist, PlanID: "p1", Binding: BindingPlanReviewed}

	if err := ApplyDone(plan, c, false, "docs are stale"); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	if plan.NeedsWork {
		t.Error("execution-phase review failure must not set creation needs-work")
	}
	if len(plan.Checklist) != 1 {
		t.Error("failed item must stay queued for retry")
	}
}

func TestApplyDoneConsumeChecklistBlockedByNeedsWork(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	plan.Checklist = []string{"last"}
	plan.SetNeedsWork("pending feedback")
	c := Continuation{Op: OpConsumeChecklist, PlanID: "p1", Binding: BindingDescriptionsReviewed}

	if err := ApplyDone(plan, c, true, ""); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	if plan.DescriptionsReviewed {
		t.Error("flag must not flip while needs-work is pending")
	}
}

func TestApplyDoneResolveFeedback(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	plan.SetNeedsWork("a")
	plan.SetNeedsWork("b")
	c := Continuation{Op: OpResolveFeedback, PlanID: "p1"}

	if err := ApplyDone(plan, c, true, ""); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	if !plan.NeedsWork || plan.OldestFeedback() != "b" {
		t.Errorf("feedback queue = %v", plan.NeedsWorkComments)
	}
	if err := ApplyDone(plan, c, true, ""); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	if plan.NeedsWork {
		t.Error("needs-work should clear once the queue empties")
	}
}

func TestApplyDonePointReviewFailureFlagsRework(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	pt := validPoint("a")
	pt.Implemented = true
	if _, err := plan.InsertPoints("", []domain.PlanPoint{pt}); err != nil {
		t.Fatalf("InsertPoints: %v", err)
	}
	c := Continuation{Op: OpPointReview, PlanID: "p1", PointID: "1"}

	if err := ApplyDone(plan, c, false, "missing error handling"); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	got := plan.Point("1")
	if !got.NeedRework || got.ReworkReason != "missing error handling" {
		t.Errorf("rework not flagged: %+v", got)
	}
	if got.Implemented {
		t.Error("rework must reset implemented")
	}
}

func TestApplyDoneClearRework(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	pt := validPoint("a")
	pt.NeedRework = true
	pt.ReworkReason = "redo it"
	if _, err := plan.InsertPoints("", []domain.PlanPoint{pt}); err != nil {
		t.Fatalf("InsertPoints: %v", err)
	}
	c := Continuation{Op: OpClearRework, PlanID: "p1", PointID: "1"}

	if err := ApplyDone(plan, c, true, ""); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	got := plan.Point("1")
	if got.NeedRework || !got.Implemented {
		t.Errorf("rework completion should clear the flag and re-mark implemented: %+v", got)
	}
}

func TestApplyDoneAcceptGated(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	pt := validPoint("a")
	pt.Implemented = true
	pt.Reviewed = true
	if _, err := plan.InsertPoints("", []domain.PlanPoint{pt}); err != nil {
		t.Fatalf("InsertPoints: %v", err)
	}
	c := Continuation{Op: OpAcceptPlan, PlanID: "p1"}

	if err := ApplyDone(plan, c, true, "ship it"); err == nil {
		t.Fatal("accept should fail while a point is untested")
	}
	if plan.Accepted {
		t.Error("plan state changed by failed accept")
	}

	plan.Points[0].Tested = true
	if err := ApplyDone(plan, c, true, "ship it"); err != nil {
		t.Fatalf("ApplyDone: %v", err)
	}
	if !plan.Accepted || plan.AcceptComment != "ship it" {
		t.Errorf("accept not applied: %+v", plan)
	}
}

func TestApplyDoneUnknownPoint(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	c := Continuation{Op: OpPointImplement, PlanID: "p1", PointID: "42"}
	if err := ApplyDone(plan, c, true, ""); err == nil {
		t.Error("unknown point should fail")
	}
}
