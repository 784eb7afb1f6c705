package workflow

import (
	"reflect"
	"testing"

	"github.com/jaakkos/planforge/internal/domain"
)

func TestExpand(t *testing.T) {
	template := `
- first item
  with a continuation line
- second item
-
- third item

trailing continuation
`
	got := Expand(template)
	want := []string{
		"first item\nwith a continuation line",
		"second item",
		"third item\ntrailing continuation",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expand = %#v, want %#v", got, want)
	}
}

func TestExpandEmpty(t *testing.T) {
	if got := Expand(""); len(got) != 0 {
		t.Errorf("Expand(\"\") = %v, want empty", got)
	}
	if got := Expand("\n- \n\n"); len(got) != 0 {
		t.Errorf("marker-only template should expand to nothing, got %v", got)
	}
}

func TestBuildReviewChecklistOrder(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	if _, err := plan.InsertPoints("", []domain.PlanPoint{
		{Title: "a"}, {Title: "b"},
	}); err != nil {
		t.Fatalf("InsertPoints: %v", err)
	}

	got := BuildReviewChecklist(plan, "- check code\n- check tests", "- overall design")
	want := []string{
		"[point 1] check code",
		"[point 1] check tests",
		"[point 2] check code",
		"[point 2] check tests",
		"[plan] overall design",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("checklist = %#v, want %#v", got, want)
	}
}

func TestInitializeChecklistIdempotent(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	if !InitializeChecklist(plan, []string{"one", "two"}) {
		t.Fatal("InitializeChecklist should report non-empty")
	}
	InitializeChecklist(plan, []string{"other"})
	if len(plan.Checklist) != 2 || plan.Checklist[0] != "one" {
		t.Errorf("existing checklist replaced: %v", plan.Checklist)
	}
	empty := domain.NewPlan("p2", "n", "s", "l")
	if InitializeChecklist(empty, nil) {
		t.Error("empty initialization should report empty")
	}
}

func TestConsumeHeadFIFO(t *testing.T) {
	plan := domain.NewPlan("p1", "n", "s", "l")
	plan.Checklist = []string{"one", "two", "three"}

	item, exhausted := ConsumeHead(plan)
	if item != "one" || exhausted {
		t.Fatalf("first consume = (%q, %v)", item, exhausted)
	}
	if plan.Checklist[0] != "two" {
		t.Fatalf("new head = %q, want two", plan.Checklist[0])
	}
	ConsumeHead(plan)
	item, exhausted = ConsumeHead(plan)
	if item != "three" || !exhausted {
		t.Fatalf("last consume = (%q, %v), want (three, true)", item, exhausted)
	}
}
