package workflow

import "github.com/jaakkos/planforge/internal/policy"

// Step names the workflow step an action descriptor belongs to. The set is
// closed; external configuration keys templates, roles, and bindings by these
// names.
type Step string

const (
	StepUpdateDescriptions Step = "update_descriptions"
	StepReviewDescriptions Step = "review_descriptions"
	StepReworkDescriptions Step = "rework_descriptions"
	StepCreateArchitecture Step = "create_architecture"
	StepFixArchitecture    Step = "fix_architecture"
	StepReviewArchitecture Step = "review_architecture"
	StepReworkArchitecture Step = "rework_architecture"
	StepCreatePoints       Step = "create_points"
	StepFixPoints          Step = "fix_points"
	StepReworkPoints       Step = "rework_points"
	StepCreationComplete   Step = "creation_complete"
	StepPlanReview         Step = "plan_review"
	StepPointRework        Step = "point_rework"
	StepPointReview        Step = "point_review"
	StepPointTest          Step = "point_test"
	StepPointImplement     Step = "point_implement"
	StepPlanAccept         Step = "plan_accept"
	StepDone               Step = "done"
)

// Built-in defaults keep the engine functional with no configuration at all.
// External templates override per step via policy.
var defaultTemplates = map[Step]string{
	StepUpdateDescriptions: "Write the name, short description and long description for plan <plan_id> (\"<plan_name>\"). Current short description: <plan_short_description>",
	StepReviewDescriptions: "Review the descriptions of plan <plan_id>. Checklist item: <checklist_item>",
	StepReworkDescriptions: "The descriptions of plan <plan_id> need work: <plan_needwork>. Revise them and resolve this feedback.",
	StepCreateArchitecture: "Create the architecture document for plan <plan_id> (\"<plan_name>\"): list the components and their connections.",
	StepFixArchitecture:    "The architecture document of plan <plan_id> is structurally invalid. Fix it. Current document: <plan_architecture>",
	StepReviewArchitecture: "Review the architecture of plan <plan_id>. Checklist item: <checklist_item>",
	StepReworkArchitecture: "The architecture of plan <plan_id> needs work: <plan_needwork>. Revise it and resolve this feedback.",
	StepCreatePoints:       "Decompose plan <plan_id> (\"<plan_name>\") into points. Each point needs a title, short and detailed descriptions, review and testing instructions, and depends_on (use \"-1\" for independent points).",
	StepFixPoints:          "The points of plan <plan_id> are structurally invalid. Fix them.",
	StepReworkPoints:       "The points of plan <plan_id> need work: <plan_needwork>. Revise them and resolve this feedback.",
	StepCreationComplete:   "Plan <plan_id> (\"<plan_name>\") is fully specified with <plan_points_total> points. Execution can begin.",
	StepPlanReview:         "Review plan <plan_id>. Checklist item: <checklist_item>",
	StepPointRework:        "Rework point <point_id> (\"<point_title>\") of plan <plan_id>. Reason: <point_rework_reason>",
	StepPointReview:        "Review point <point_id> (\"<point_title>\") of plan <plan_id>. Instructions: <point_review_instructions>",
	StepPointTest:          "Test point <point_id> (\"<point_title>\") of plan <plan_id>. Instructions: <point_testing_instructions>",
	StepPointImplement:     "Implement point <point_id> (\"<point_title>\") of plan <plan_id>. <point_detailed_description>",
	StepPlanAccept:         "All <plan_points_total> points of plan <plan_id> are reviewed and tested. Accept the plan or flag remaining work.",
	StepDone:               "Plan <plan_id> (\"<plan_name>\") is accepted. Nothing left to do.",
}

var defaultRoles = map[Step]string{
	StepUpdateDescriptions: "planner",
	StepReviewDescriptions: "reviewer",
	StepReworkDescriptions: "planner",
	StepCreateArchitecture: "architect",
	StepFixArchitecture:    "architect",
	StepReviewArchitecture: "reviewer",
	StepReworkArchitecture: "architect",
	StepCreatePoints:       "planner",
	StepFixPoints:          "planner",
	StepReworkPoints:       "planner",
	StepCreationComplete:   "planner",
	StepPlanReview:         "reviewer",
	StepPointRework:        "implementer",
	StepPointReview:        "reviewer",
	StepPointTest:          "tester",
	StepPointImplement:     "implementer",
	StepPlanAccept:         "reviewer",
	StepDone:               "planner",
}

// Persisted-flag bindings for checklist-driven and flag-driven steps.
var defaultBindings = map[Step]string{
	StepUpdateDescriptions: BindingDescriptionsUpdated,
	StepReviewDescriptions: BindingDescriptionsReviewed,
	StepCreateArchitecture: BindingArchitectureCreated,
	StepReviewArchitecture: BindingArchitectureReviewed,
	StepCreatePoints:       BindingPointsCreated,
	StepPlanReview:         BindingPlanReviewed,
}

// TemplateFor returns the instruction template for a step: the configured
// override when present, the built-in default otherwise.
func TemplateFor(pol *policy.Policy, step Step) string {
	if pol != nil {
		if t := pol.Template(string(step)); t != "" {
			return t
		}
	}
	return defaultTemplates[step]
}

// RoleFor returns the recommended execution role for a step.
func RoleFor(pol *policy.Policy, step Step) string {
	if pol != nil {
		if r := pol.Role(string(step)); r != "" {
			return r
		}
	}
	return defaultRoles[step]
}

// BindingFor returns the persisted-flag binding for a step, or "".
func BindingFor(pol *policy.Policy, step Step) string {
	if pol != nil {
		if b := pol.Binding(string(step)); b != "" {
			return b
		}
	}
	return defaultBindings[step]
}
