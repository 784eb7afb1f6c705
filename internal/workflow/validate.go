// Package workflow implements the plan workflow evaluation engine: phase
// classification, the creation and execution priority chains, checklist
// consumption, placeholder rendering, and the continuation contract callers
// use to report step outcomes.
package workflow

import (
	"fmt"

	"github.com/jaakkos/planforge/internal/domain"
)

// Issue describes the first structural problem found in a plan's points.
type Issue struct {
	PointID string
	Reason  string
}

func (i *Issue) String() string {
	return fmt.Sprintf("point %s: %s", i.PointID, i.Reason)
}

// ValidatePoints scans points in insertion order and returns the first issue
// found, or nil. Fail-fast: given two invalid points it always reports the
// one appearing first.
func ValidatePoints(plan *domain.Plan) *Issue {
	for i := range plan.Points {
		pt := &plan.Points[i]
		for _, f := range []struct{ name, value string }{
			{"title", pt.Title},
			{"short_description", pt.ShortDescription},
			{"detailed_description", pt.DetailedDescription},
			{"review_instructions", pt.ReviewInstructions},
			{"testing_instructions", pt.TestingInstructions},
		} {
			if f.value == "" {
				return &Issue{PointID: pt.ID, Reason: fmt.Sprintf("required field %s is empty", f.name)}
			}
		}
		if len(pt.DependsOn) == 0 {
			return &Issue{PointID: pt.ID, Reason: "depends_on is unset (use \"-1\" for an independent point)"}
		}
		for _, dep := range pt.DependsOn {
			if dep == domain.IndependentPoint {
				continue
			}
			if plan.Point(dep) == nil {
				return &Issue{PointID: pt.ID, Reason: fmt.Sprintf("depends_on references unknown point %q", dep)}
			}
		}
	}
	return nil
}

// ValidateArchitecture checks the structural soundness of an architecture
// document: non-empty components with non-blank ids, and connections whose
// endpoints resolve to declared components.
func ValidateArchitecture(doc *domain.ArchitectureDoc) error {
	if doc == nil {
		return fmt.Errorf("architecture document is missing")
	}
	if len(doc.Components) == 0 {
		return fmt.Errorf("architecture has no components")
	}
	ids := make(map[string]bool, len(doc.Components))
	for _, c := range doc.Components {
		if c.ID == "" {
			return fmt.Errorf("architecture component %q has no id", c.Name)
		}
		ids[c.ID] = true
	}
	for _, conn := range doc.Connections {
		if !ids[conn.From] {
			return fmt.Errorf("connection references unknown component %q", conn.From)
		}
		if !ids[conn.To] {
			return fmt.Errorf("connection references unknown component %q", conn.To)
		}
	}
	return nil
}
