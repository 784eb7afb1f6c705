package planning

import (
	"strings"
	"testing"

	"github.com/jaakkos/planforge/internal/domain"
)

func TestCreatePlanTool(t *testing.T) {
	svc := newTestService(t, nil)
	s := testServer(svc)

	result, err := callTool(t, s, "create_plan", map[string]any{
		"id":   "p1",
		"name": "Auth refactor",
	})
	if err != nil {
		t.Fatalf("create_plan: %v", err)
	}
	if !strings.Contains(resultText(t, result), "Plan created") {
		t.Errorf("unexpected result: %s", resultText(t, result))
	}

	if _, err := callTool(t, s, "create_plan", map[string]any{
		"id":   "p1",
		"name": "dup",
	}); err == nil {
		t.Error("duplicate create_plan should fail")
	}

	if _, err := callTool(t, s, "create_plan", map[string]any{"id": "p2"}); err == nil {
		t.Error("create_plan without name should fail")
	}
}

func TestUpdatePlanDescriptionsTool(t *testing.T) {
	svc := newTestService(t, nil)
	s := testServer(svc)
	createTestPlan(t, s, "p1")

	if _, err := callTool(t, s, "update_plan_descriptions", map[string]any{
		"plan_id":           "p1",
		"short_description": "better summary",
	}); err != nil {
		t.Fatalf("update_plan_descriptions: %v", err)
	}

	_ = svc.Query("p1", func(p *domain.Plan) error {
		if p.ShortDescription != "better summary" {
			t.Errorf("short description = %q", p.ShortDescription)
		}
		if !p.DescriptionsUpdated {
			t.Error("descriptions_updated should default to being marked")
		}
		return nil
	})
}

func TestSetArchitectureTool(t *testing.T) {
	svc := newTestService(t, nil)
	s := testServer(svc)
	createTestPlan(t, s, "p1")

	result, err := callTool(t, s, "set_architecture", map[string]any{
		"plan_id":  "p1",
		"document": `{"components":[{"id":"c1","name":"API"}],"connections":[]}`,
	})
	if err != nil {
		t.Fatalf("set_architecture: %v", err)
	}
	if !strings.Contains(resultText(t, result), "1 components") {
		t.Errorf("unexpected result: %s", resultText(t, result))
	}
	_ = svc.Query("p1", func(p *domain.Plan) error {
		if !p.ArchitectureCreated || p.Architecture == nil {
			t.Error("architecture not stored")
		}
		return nil
	})

	// Malformed JSON is rejected outright.
	if _, err := callTool(t, s, "set_architecture", map[string]any{
		"plan_id":  "p1",
		"document": "not json",
	}); err == nil {
		t.Error("invalid JSON document should fail")
	}

	// A structurally invalid document is stored with a warning; the
	// workflow surfaces the fix step.
	result, err = callTool(t, s, "set_architecture", map[string]any{
		"plan_id":  "p1",
		"document": `{"components":[{"id":"c1","name":"API"}],"connections":[{"from":"c1","to":"ghost"}]}`,
	})
	if err != nil {
		t.Fatalf("set_architecture: %v", err)
	}
	if !strings.Contains(resultText(t, result), "Warning") {
		t.Errorf("expected structural warning, got: %s", resultText(t, result))
	}
}

func TestSetPlanReviewedValidatesPoints(t *testing.T) {
	svc := newTestService(t, nil)
	s := testServer(svc)
	createTestPlan(t, s, "p1")

	bad := validPointArgs("a")
	delete(bad, "depends_on")
	if _, err := callTool(t, s, "add_points", map[string]any{
		"plan_id": "p1",
		"points":  []any{bad},
	}); err != nil {
		t.Fatalf("add_points: %v", err)
	}

	if _, err := callTool(t, s, "set_plan_reviewed", map[string]any{"plan_id": "p1"}); err == nil {
		t.Error("set_plan_reviewed should fail structural validation")
	}

	if _, err := callTool(t, s, "set_point_dependencies", map[string]any{
		"plan_id":    "p1",
		"point_id":   "1",
		"depends_on": []any{"-1"},
	}); err != nil {
		t.Fatalf("set_point_dependencies: %v", err)
	}
	if _, err := callTool(t, s, "set_plan_reviewed", map[string]any{"plan_id": "p1"}); err != nil {
		t.Errorf("set_plan_reviewed after fix: %v", err)
	}
}

func TestSetPlanNeedsWorkClearsReviewedAndAccepted(t *testing.T) {
	svc := newTestService(t, nil)
	s := testServer(svc)
	createTestPlan(t, s, "p1")

	if _, err := callTool(t, s, "set_plan_needs_work", map[string]any{
		"plan_id": "p1",
		"comment": "scope is wrong",
	}); err != nil {
		t.Fatalf("set_plan_needs_work: %v", err)
	}
	_ = svc.Query("p1", func(p *domain.Plan) error {
		if !p.NeedsWork || p.Reviewed || p.Accepted {
			t.Errorf("flags after needs-work: %+v", p)
		}
		return nil
	})
}

func TestSetPlanAcceptedGated(t *testing.T) {
	svc := newTestService(t, nil)
	s := testServer(svc)
	createTestPlan(t, s, "p1")
	if _, err := callTool(t, s, "add_points", map[string]any{
		"plan_id": "p1",
		"points":  []any{validPointArgs("a")},
	}); err != nil {
		t.Fatalf("add_points: %v", err)
	}

	if _, err := callTool(t, s, "set_plan_accepted", map[string]any{"plan_id": "p1"}); err == nil {
		t.Error("accept with unworked point should fail")
	}

	for _, status := range []string{"implemented", "reviewed", "tested"} {
		if _, err := callTool(t, s, "set_point_status", map[string]any{
			"plan_id":  "p1",
			"point_id": "1",
			"status":   status,
		}); err != nil {
			t.Fatalf("set_point_status %s: %v", status, err)
		}
	}
	if _, err := callTool(t, s, "set_plan_accepted", map[string]any{
		"plan_id": "p1",
		"comment": "done",
	}); err != nil {
		t.Fatalf("set_plan_accepted: %v", err)
	}
}

func TestDeletePlanGuarded(t *testing.T) {
	svc := newTestService(t, nil)
	s := testServer(svc)
	createTestPlan(t, s, "p1")

	if _, err := callTool(t, s, "delete_plan", map[string]any{"plan_id": "p1"}); err == nil {
		t.Error("delete of unaccepted plan should fail without force")
	}
	if _, err := callTool(t, s, "delete_plan", map[string]any{
		"plan_id": "p1",
		"force":   true,
	}); err != nil {
		t.Fatalf("forced delete: %v", err)
	}
	if _, err := callTool(t, s, "get_plan", map[string]any{"plan_id": "p1"}); err == nil {
		t.Error("deleted plan should not be fetchable")
	}
}

func TestGetPlanSnapshot(t *testing.T) {
	svc := newTestService(t, nil)
	s := testServer(svc)
	createTestPlan(t, s, "p1")
	if _, err := callTool(t, s, "add_points", map[string]any{
		"plan_id": "p1",
		"points":  []any{validPointArgs("wire sessions")},
	}); err != nil {
		t.Fatalf("add_points: %v", err)
	}

	result, err := callTool(t, s, "get_plan", map[string]any{"plan_id": "p1"})
	if err != nil {
		t.Fatalf("get_plan: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"Plan p1", "wire sessions", "Progress: 1 points"} {
		if !strings.Contains(text, want) {
			t.Errorf("snapshot missing %q:\n%s", want, text)
		}
	}

	// Listing form.
	result, err = callTool(t, s, "get_plan", map[string]any{})
	if err != nil {
		t.Fatalf("get_plan list: %v", err)
	}
	if !strings.Contains(resultText(t, result), "p1") {
		t.Errorf("list missing plan: %s", resultText(t, result))
	}
}

func TestGetActivityLogNewestFirst(t *testing.T) {
	svc := newTestService(t, nil)
	s := testServer(svc)
	createTestPlan(t, s, "p1")
	if _, err := callTool(t, s, "update_plan_descriptions", map[string]any{
		"plan_id": "p1",
		"name":    "renamed",
	}); err != nil {
		t.Fatalf("update_plan_descriptions: %v", err)
	}

	result, err := callTool(t, s, "get_activity_log", map[string]any{"plan_id": "p1"})
	if err != nil {
		t.Fatalf("get_activity_log: %v", err)
	}
	text := resultText(t, result)
	created := strings.Index(text, "created")
	updated := strings.Index(text, "descriptions_updated")
	if created < 0 || updated < 0 {
		t.Fatalf("log missing events:\n%s", text)
	}
	if updated > created {
		t.Errorf("log not newest-first:\n%s", text)
	}
}
