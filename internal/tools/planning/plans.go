package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/domain"
	"github.com/jaakkos/planforge/internal/workflow"
)

// registerCreatePlan registers the create_plan tool.
func registerCreatePlan(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("create_plan",
			mcp.WithDescription("Create a new plan. The plan starts in the creation phase: descriptions, architecture and point decomposition come before any implementation work."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Unique plan ID (e.g., 'auth-refactor')")),
			mcp.WithString("name", mcp.Required(), mcp.Description("Plan name")),
			mcp.WithString("short_description", mcp.Description("One-line summary")),
			mcp.WithString("long_description", mcp.Description("Full description of the goal and scope")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			id, err := requireString(args, "id")
			if err != nil {
				return nil, err
			}
			name, err := requireString(args, "name")
			if err != nil {
				return nil, err
			}

			plan := domain.NewPlan(id, name,
				optionalString(args, "short_description"),
				optionalString(args, "long_description"))
			if err := svc.Create(plan); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q created", id)
			return mcp.NewToolResultText(fmt.Sprintf("Plan created: %s (%s)\n\nNext: call evaluate_plan to get the first workflow step.", name, id)), nil
		},
	)
}

// registerUpdatePlanDescriptions registers the update_plan_descriptions tool.
func registerUpdatePlanDescriptions(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("update_plan_descriptions",
			mcp.WithDescription("Update a plan's name and descriptions. Marks the descriptions-updated step complete unless mark_updated is false."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("name", mcp.Description("New plan name")),
			mcp.WithString("short_description", mcp.Description("New one-line summary")),
			mcp.WithString("long_description", mcp.Description("New full description")),
			mcp.WithBoolean("mark_updated", mcp.Description("Mark the descriptions-updated flag (default: true)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			markUpdated := optionalBool(args, "mark_updated", true)

			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				if v := optionalString(args, "name"); v != "" {
					p.Name = v
				}
				if v := optionalString(args, "short_description"); v != "" {
					p.ShortDescription = v
				}
				if v := optionalString(args, "long_description"); v != "" {
					p.LongDescription = v
				}
				if markUpdated {
					p.DescriptionsUpdated = true
				}
				logf("descriptions_updated", app.Summarize(p.ShortDescription, 80))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q descriptions updated", planID)
			return mcp.NewToolResultText(fmt.Sprintf("Descriptions updated for plan %s", planID)), nil
		},
	)
}

// registerSetArchitecture registers the set_architecture tool.
func registerSetArchitecture(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("set_architecture",
			mcp.WithDescription("Attach the architecture document to a plan. The document is JSON with a components list and a connections list, e.g. {\"components\":[{\"id\":\"c1\",\"name\":\"API\"}],\"connections\":[]}."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("document", mcp.Required(), mcp.Description("Architecture document as a JSON string")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			raw, err := requireString(args, "document")
			if err != nil {
				return nil, err
			}

			var doc domain.ArchitectureDoc
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				return nil, &domain.ValidationError{Reason: fmt.Sprintf("architecture document is not valid JSON: %v", err)}
			}

			// Structural problems are stored anyway; the evaluator surfaces
			// them as the fix-architecture step.
			warning := ""
			if err := workflow.ValidateArchitecture(&doc); err != nil {
				warning = fmt.Sprintf("\n\nWarning: %v. The workflow will ask for a fix.", err)
			}

			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				p.Architecture = &doc
				p.ArchitectureCreated = true
				logf("architecture_set", fmt.Sprintf("%d components, %d connections", len(doc.Components), len(doc.Connections)))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q architecture set (%d components)", planID, len(doc.Components))
			return mcp.NewToolResultText(fmt.Sprintf("Architecture set for plan %s: %d components, %d connections%s",
				planID, len(doc.Components), len(doc.Connections), warning)), nil
		},
	)
}

// registerSetPlanReviewed registers the set_plan_reviewed tool.
func registerSetPlanReviewed(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("set_plan_reviewed",
			mcp.WithDescription("Mark the plan reviewed (or clear the flag). Marking reviewed invalidates any prior acceptance. Points must pass structural validation first."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithBoolean("value", mcp.Description("Reviewed value (default: true)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			value := optionalBool(args, "value", true)

			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				if value {
					if issue := workflow.ValidatePoints(p); issue != nil {
						return &domain.ValidationError{PointID: issue.PointID, Reason: issue.Reason}
					}
				}
				p.SetReviewed(value)
				logf("plan_reviewed", fmt.Sprintf("%v", value))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q reviewed=%v", planID, value)
			return mcp.NewToolResultText(fmt.Sprintf("Plan %s reviewed set to %v", planID, value)), nil
		},
	)
}

// registerSetPlanNeedsWork registers the set_plan_needs_work tool.
func registerSetPlanNeedsWork(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("set_plan_needs_work",
			mcp.WithDescription("Flag the plan as needing work with a feedback comment. Clears reviewed and accepted. Feedback is resolved one comment at a time through the workflow."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("comment", mcp.Required(), mcp.Description("What needs to change")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			comment, err := requireString(args, "comment")
			if err != nil {
				return nil, err
			}

			var queued int
			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				p.SetNeedsWork(comment)
				queued = len(p.NeedsWorkComments)
				logf("plan_needs_work", app.Summarize(comment, 80))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q flagged needs-work", planID)
			return mcp.NewToolResultText(fmt.Sprintf("Plan %s flagged as needing work (%d feedback comment(s) queued)", planID, queued)), nil
		},
	)
}

// registerSetPlanAccepted registers the set_plan_accepted tool.
func registerSetPlanAccepted(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("set_plan_accepted",
			mcp.WithDescription("Accept the plan. Fails unless every point is both reviewed and tested."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("comment", mcp.Description("Acceptance comment")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			comment := optionalString(args, "comment")

			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				if err := p.Accept(comment); err != nil {
					return err
				}
				logf("plan_accepted", app.Summarize(comment, 80))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q accepted", planID)
			return mcp.NewToolResultText(fmt.Sprintf("Plan %s accepted", planID)), nil
		},
	)
}

// registerDeletePlan registers the delete_plan tool.
func registerDeletePlan(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("delete_plan",
			mcp.WithDescription("Delete a plan. Refused for plans that are not accepted unless force is set."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithBoolean("force", mcp.Description("Delete even if the plan is not accepted")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			force := optionalBool(args, "force", false)

			if err := svc.Delete(planID, force); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q deleted (force=%v)", planID, force)
			return mcp.NewToolResultText(fmt.Sprintf("Plan %s deleted", planID)), nil
		},
	)
}

// registerGetPlan registers the get_plan tool.
func registerGetPlan(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("get_plan",
			mcp.WithDescription("Get a plan snapshot with all points and their status. Omit plan_id to list all plans."),
			mcp.WithString("plan_id", mcp.Description("Plan ID (omit to list plans)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID := optionalString(args, "plan_id")

			if planID == "" {
				ids := svc.List()
				if len(ids) == 0 {
					return mcp.NewToolResultText("No plans. Use create_plan to start one."), nil
				}
				result := "Plans:\n"
				for _, id := range ids {
					_ = svc.Query(id, func(p *domain.Plan) error {
						result += fmt.Sprintf("- %s: %s (%s)\n", p.ID, p.Name, planPhase(p))
						return nil
					})
				}
				return mcp.NewToolResultText(result), nil
			}

			var result string
			if err := svc.Query(planID, func(p *domain.Plan) error {
				result = formatPlan(p)
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Got plan %q", planID)
			return mcp.NewToolResultText(result), nil
		},
	)
}

func planPhase(p *domain.Plan) string {
	switch {
	case p.Accepted:
		return "accepted"
	case p.CreationStep == domain.StepCreationComplete:
		return "execution"
	default:
		return "creation: " + string(p.CreationStep)
	}
}

func formatPlan(p *domain.Plan) string {
	result := fmt.Sprintf("# %s\n", p.Name)
	result += fmt.Sprintf("ID: %s | Phase: %s\n", p.ID, planPhase(p))
	if p.ShortDescription != "" {
		result += fmt.Sprintf("\n%s\n", p.ShortDescription)
	}
	if p.LongDescription != "" {
		result += fmt.Sprintf("\n## Description\n%s\n", p.LongDescription)
	}
	if p.Architecture != nil {
		result += fmt.Sprintf("\n## Architecture\n%d components, %d connections\n",
			len(p.Architecture.Components), len(p.Architecture.Connections))
	}
	result += fmt.Sprintf("\n## Creation flags\ndescriptions updated=%v reviewed=%v | architecture created=%v reviewed=%v | points created=%v\n",
		p.DescriptionsUpdated, p.DescriptionsReviewed, p.ArchitectureCreated, p.ArchitectureReviewed, p.PointsCreated)
	if p.NeedsWork {
		result += fmt.Sprintf("\nNeeds work (%d comment(s)); next: %s\n",
			len(p.NeedsWorkComments), app.Truncate(p.OldestFeedback(), 120))
	}
	if len(p.Checklist) > 0 {
		result += fmt.Sprintf("\nChecklist: %d item(s) pending, head: %s\n",
			len(p.Checklist), app.Truncate(p.Checklist[0], 120))
	}

	result += "\n## Points\n"
	if len(p.Points) == 0 {
		result += "(No points yet - use add_points)\n"
	}
	for i := range p.Points {
		pt := &p.Points[i]
		result += fmt.Sprintf("[%s] %s — impl=%v reviewed=%v tested=%v",
			pt.ID, pt.Title, pt.Implemented, pt.Reviewed, pt.Tested)
		if pt.NeedRework {
			result += fmt.Sprintf(" REWORK: %s", app.Truncate(pt.ReworkReason, 80))
		}
		result += fmt.Sprintf("\n    depends on: %s\n", pt.DependsOnList())
		if pt.ShortDescription != "" {
			result += fmt.Sprintf("    %s\n", app.Truncate(pt.ShortDescription, 80))
		}
	}

	total, impl, reviewed, tested := p.PointCounts()
	result += fmt.Sprintf("\n---\nProgress: %d points, %d implemented, %d reviewed, %d tested\n",
		total, impl, reviewed, tested)
	result += fmt.Sprintf("Plan reviewed=%v accepted=%v\n", p.Reviewed, p.Accepted)
	return result
}

// registerGetActivityLog registers the get_activity_log tool.
func registerGetActivityLog(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("get_activity_log",
			mcp.WithDescription("Get a plan's bounded activity log, newest first."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithNumber("limit", mcp.Description("Max entries to return (default: 20)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			limit := int(optionalFloat64(args, "limit", 20))
			if limit <= 0 {
				limit = 20
			}

			var result string
			if err := svc.Query(planID, func(p *domain.Plan) error {
				if len(p.Log) == 0 {
					result = "No activity recorded."
					return nil
				}
				result = fmt.Sprintf("Activity for plan %s (newest first):\n", planID)
				shown := 0
				for i := len(p.Log) - 1; i >= 0 && shown < limit; i-- {
					e := p.Log[i]
					line := fmt.Sprintf("%s  %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Event)
					if e.Detail != "" {
						line += ": " + app.Truncate(e.Detail, 100)
					}
					result += line + "\n"
					shown++
				}
				return nil
			}); err != nil {
				return nil, err
			}

			return mcp.NewToolResultText(result), nil
		},
	)
}
