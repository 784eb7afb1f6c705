package workflow

import (
	"fmt"
	"strings"

	"github.com/jaakkos/planforge/internal/domain"
)

// checklistMarker starts a new checklist item. Continuation lines (non-marker,
// non-blank) are appended to the current item with a line break.
const checklistMarker = "- "

// Expand parses a checklist template into an ordered list of item strings.
// Blank and marker-only lines are ignored.
func Expand(template string) []string {
	var items []string
	for _, line := range strings.Split(template, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == strings.TrimSpace(checklistMarker) {
			continue
		}
		if strings.HasPrefix(trimmed, checklistMarker) {
			items = append(items, strings.TrimSpace(trimmed[len(checklistMarker):]))
			continue
		}
		if len(items) == 0 {
			// Continuation line with no open item starts one.
			items = append(items, trimmed)
			continue
		}
		items[len(items)-1] += "\n" + trimmed
	}
	return items
}

// BuildReviewChecklist produces the plan-review queue: one expanded item per
// point (prefixed with that point's id) for every point-scoped template item,
// followed by the plan-wide items, preserving template order.
func BuildReviewChecklist(plan *domain.Plan, pointTemplate, planTemplate string) []string {
	var items []string
	pointItems := Expand(pointTemplate)
	for i := range plan.Points {
		for _, item := range pointItems {
			items = append(items, fmt.Sprintf("[point %s] %s", plan.Points[i].ID, item))
		}
	}
	for _, item := range Expand(planTemplate) {
		items = append(items, fmt.Sprintf("[plan] %s", item))
	}
	return items
}

// InitializeChecklist installs items as the plan's pending checklist.
// Idempotent: a non-empty existing checklist is left untouched.
// Reports whether the checklist is non-empty afterwards.
func InitializeChecklist(plan *domain.Plan, items []string) bool {
	if len(plan.Checklist) > 0 {
		return true
	}
	plan.Checklist = items
	return len(plan.Checklist) > 0
}

// ConsumeHead removes the first checklist item (strict FIFO) and returns it.
// Reports whether the queue is now exhausted. Flag side effects on exhaustion
// belong to the continuation that called this, not here.
func ConsumeHead(plan *domain.Plan) (item string, exhausted bool) {
	if len(plan.Checklist) == 0 {
		return "", true
	}
	item = plan.Checklist[0]
	plan.Checklist = plan.Checklist[1:]
	return item, len(plan.Checklist) == 0
}
