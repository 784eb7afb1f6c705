package workflow

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jaakkos/planforge/internal/domain"
)

// RenderContext carries the values a template render can draw on. Point and
// ChecklistItem are optional; tokens needing an absent value resolve empty.
type RenderContext struct {
	Plan          *domain.Plan
	Point         *domain.PlanPoint
	ChecklistItem string
}

// resolver produces the value for one token. ok=false leaves the token as
// literal text (unknown-token passthrough).
type resolver func(rc RenderContext) (value string, ok bool)

// Tokens are a closed set; template text referencing anything else passes
// through unresolved so external templates cannot break rendering.
var tokenResolvers = map[string]resolver{
	"plan_id":   func(rc RenderContext) (string, bool) { return rc.Plan.ID, true },
	"plan_name": func(rc RenderContext) (string, bool) { return rc.Plan.Name, true },
	"plan_short_description": func(rc RenderContext) (string, bool) {
		return rc.Plan.ShortDescription, true
	},
	"plan_long_description": func(rc RenderContext) (string, bool) {
		return rc.Plan.LongDescription, true
	},
	"plan_points_total": func(rc RenderContext) (string, bool) {
		total, _, _, _ := rc.Plan.PointCounts()
		return strconv.Itoa(total), true
	},
	"plan_points_implemented": func(rc RenderContext) (string, bool) {
		_, impl, _, _ := rc.Plan.PointCounts()
		return strconv.Itoa(impl), true
	},
	"plan_points_reviewed": func(rc RenderContext) (string, bool) {
		_, _, rev, _ := rc.Plan.PointCounts()
		return strconv.Itoa(rev), true
	},
	"plan_points_tested": func(rc RenderContext) (string, bool) {
		_, _, _, tested := rc.Plan.PointCounts()
		return strconv.Itoa(tested), true
	},
	// Always the oldest unresolved feedback comment, never a concatenation:
	// rework prompts address one piece of feedback at a time.
	"plan_needwork": func(rc RenderContext) (string, bool) {
		return rc.Plan.OldestFeedback(), true
	},
	"plan_architecture": func(rc RenderContext) (string, bool) {
		if rc.Plan.Architecture == nil {
			return "", true
		}
		doc, err := json.MarshalIndent(rc.Plan.Architecture, "", "  ")
		if err != nil {
			return "", true
		}
		return string(doc), true
	},
	"checklist_item": func(rc RenderContext) (string, bool) { return rc.ChecklistItem, true },

	"point_id":    pointToken(func(pt *domain.PlanPoint) string { return pt.ID }),
	"point_title": pointToken(func(pt *domain.PlanPoint) string { return pt.Title }),
	"point_short_description": pointToken(func(pt *domain.PlanPoint) string {
		return pt.ShortDescription
	}),
	"point_detailed_description": pointToken(func(pt *domain.PlanPoint) string {
		return pt.DetailedDescription
	}),
	"point_review_instructions": pointToken(func(pt *domain.PlanPoint) string {
		return pt.ReviewInstructions
	}),
	"point_testing_instructions": pointToken(func(pt *domain.PlanPoint) string {
		return pt.TestingInstructions
	}),
	"point_expected_inputs": pointToken(func(pt *domain.PlanPoint) string {
		return pt.ExpectedInputs
	}),
	"point_expected_outputs": pointToken(func(pt *domain.PlanPoint) string {
		return pt.ExpectedOutputs
	}),
	"point_depends_on": pointToken(func(pt *domain.PlanPoint) string {
		return pt.DependsOnList()
	}),
	"point_rework_reason": pointToken(func(pt *domain.PlanPoint) string {
		return pt.ReworkReason
	}),
}

func pointToken(fn func(pt *domain.PlanPoint) string) resolver {
	return func(rc RenderContext) (string, bool) {
		if rc.Point == nil {
			return "", true
		}
		return fn(rc.Point), true
	}
}

// Render substitutes <token> references in template with current plan/point
// values. Unknown tokens are left as literal text.
func Render(template string, rc RenderContext) string {
	var out strings.Builder
	out.Grow(len(template))
	for {
		open := strings.IndexByte(template, '<')
		if open < 0 {
			out.WriteString(template)
			return out.String()
		}
		end := strings.IndexByte(template[open:], '>')
		if end < 0 {
			out.WriteString(template)
			return out.String()
		}
		end += open
		name := template[open+1 : end]
		if res, ok := tokenResolvers[name]; ok {
			if value, resolved := res(rc); resolved {
				out.WriteString(template[:open])
				out.WriteString(value)
				template = template[end+1:]
				continue
			}
		}
		out.WriteString(template[:end+1])
		template = template[end+1:]
	}
}
