package planning

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/domain"
)

// registerAddPoints registers the add_points tool.
func registerAddPoints(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("add_points",
			mcp.WithDescription("Add points to a plan in a single batch. Points are inserted after after_point (or at the head) and get fresh sequential ids. Each point object: title, short_description, detailed_description, review_instructions, testing_instructions, optional expected_inputs/expected_outputs, depends_on (list of point ids or [\"-1\"] for independent), optional care_on_points."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("after_point", mcp.Description("Insert after this point id (omit for head)")),
			mcp.WithArray("points", mcp.Required(), mcp.Description("Point objects to insert, in order")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			afterPoint := optionalString(args, "after_point")

			rawPoints, ok := args["points"].([]interface{})
			if !ok || len(rawPoints) == 0 {
				return nil, fmt.Errorf("points is required and must be a non-empty array")
			}
			points := make([]domain.PlanPoint, 0, len(rawPoints))
			for i, raw := range rawPoints {
				obj, ok := raw.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("points[%d] must be an object", i)
				}
				points = append(points, domain.PlanPoint{
					Title:               optionalString(obj, "title"),
					ShortDescription:    optionalString(obj, "short_description"),
					DetailedDescription: optionalString(obj, "detailed_description"),
					ReviewInstructions:  optionalString(obj, "review_instructions"),
					TestingInstructions: optionalString(obj, "testing_instructions"),
					ExpectedInputs:      optionalString(obj, "expected_inputs"),
					ExpectedOutputs:     optionalString(obj, "expected_outputs"),
					DependsOn:           stringList(obj, "depends_on"),
					CareOnPoints:        stringList(obj, "care_on_points"),
				})
			}

			var ids []string
			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				var err error
				ids, err = p.InsertPoints(afterPoint, points)
				if err != nil {
					return err
				}
				p.PointsCreated = true
				logf("points_added", strings.Join(ids, ", "))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q: added %d point(s): %v", planID, len(ids), ids)
			return mcp.NewToolResultText(fmt.Sprintf("Added %d point(s) to plan %s: %s", len(ids), planID, strings.Join(ids, ", "))), nil
		},
	)
}

// registerChangePoint registers the change_point tool.
func registerChangePoint(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("change_point",
			mcp.WithDescription("Change a point's descriptive fields. Only provided fields are updated."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("point_id", mcp.Required(), mcp.Description("Point ID")),
			mcp.WithString("title", mcp.Description("New title")),
			mcp.WithString("short_description", mcp.Description("New short description")),
			mcp.WithString("detailed_description", mcp.Description("New detailed description")),
			mcp.WithString("review_instructions", mcp.Description("New review instructions")),
			mcp.WithString("testing_instructions", mcp.Description("New testing instructions")),
			mcp.WithString("expected_inputs", mcp.Description("New expected inputs")),
			mcp.WithString("expected_outputs", mcp.Description("New expected outputs")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			pointID, err := requireString(args, "point_id")
			if err != nil {
				return nil, err
			}

			var changes []string
			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				pt := p.Point(pointID)
				if pt == nil {
					return &domain.NotFoundError{Kind: "point", ID: pointID}
				}
				for _, f := range []struct {
					key    string
					target *string
				}{
					{"title", &pt.Title},
					{"short_description", &pt.ShortDescription},
					{"detailed_description", &pt.DetailedDescription},
					{"review_instructions", &pt.ReviewInstructions},
					{"testing_instructions", &pt.TestingInstructions},
					{"expected_inputs", &pt.ExpectedInputs},
					{"expected_outputs", &pt.ExpectedOutputs},
				} {
					if v := optionalString(args, f.key); v != "" {
						*f.target = v
						changes = append(changes, f.key)
					}
				}
				if len(changes) == 0 {
					return fmt.Errorf("no fields to change")
				}
				pt.UpdatedAt = time.Now()
				logf("point_changed", fmt.Sprintf("point %s: %s", pointID, strings.Join(changes, ", ")))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q point %q changed: %v", planID, pointID, changes)
			return mcp.NewToolResultText(fmt.Sprintf("Updated point %s: %s", pointID, strings.Join(changes, ", "))), nil
		},
	)
}

// registerSetPointDependencies registers the set_point_dependencies tool.
func registerSetPointDependencies(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("set_point_dependencies",
			mcp.WithDescription("Set a point's depends_on list (point ids, or [\"-1\"] for an explicitly independent point) and optionally its care_on_points."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("point_id", mcp.Required(), mcp.Description("Point ID")),
			mcp.WithArray("depends_on", mcp.Required(), mcp.Description("Point ids this point depends on, or [\"-1\"]")),
			mcp.WithArray("care_on_points", mcp.Description("Related-but-not-blocking point ids")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			pointID, err := requireString(args, "point_id")
			if err != nil {
				return nil, err
			}
			dependsOn := stringList(args, "depends_on")
			if len(dependsOn) == 0 {
				return nil, fmt.Errorf("depends_on is required (use [\"-1\"] for an independent point)")
			}
			careOn := stringList(args, "care_on_points")

			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				pt := p.Point(pointID)
				if pt == nil {
					return &domain.NotFoundError{Kind: "point", ID: pointID}
				}
				for _, dep := range dependsOn {
					if dep == domain.IndependentPoint {
						continue
					}
					if dep == pointID {
						return &domain.ValidationError{PointID: pointID, Reason: "point cannot depend on itself"}
					}
					if p.Point(dep) == nil {
						return &domain.ValidationError{PointID: pointID, Reason: fmt.Sprintf("depends_on references unknown point %q", dep)}
					}
				}
				for _, rel := range careOn {
					if p.Point(rel) == nil {
						return &domain.ValidationError{PointID: pointID, Reason: fmt.Sprintf("care_on_points references unknown point %q", rel)}
					}
				}
				pt.DependsOn = dependsOn
				pt.CareOnPoints = careOn
				pt.UpdatedAt = time.Now()
				logf("point_dependencies_set", fmt.Sprintf("point %s -> %s", pointID, strings.Join(dependsOn, ", ")))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q point %q dependencies set: %v", planID, pointID, dependsOn)
			return mcp.NewToolResultText(fmt.Sprintf("Point %s depends on: %s", pointID, strings.Join(dependsOn, ", "))), nil
		},
	)
}

// registerAddPointComment registers the add_point_comment tool.
func registerAddPointComment(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("add_point_comment",
			mcp.WithDescription("Append a free-text comment to a point. Comments are timestamp-prefixed and append-only."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("point_id", mcp.Required(), mcp.Description("Point ID")),
			mcp.WithString("comment", mcp.Required(), mcp.Description("Comment text")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			pointID, err := requireString(args, "point_id")
			if err != nil {
				return nil, err
			}
			comment, err := requireString(args, "comment")
			if err != nil {
				return nil, err
			}

			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				pt := p.Point(pointID)
				if pt == nil {
					return &domain.NotFoundError{Kind: "point", ID: pointID}
				}
				pt.AddComment(comment, time.Now())
				pt.UpdatedAt = time.Now()
				logf("point_comment", fmt.Sprintf("point %s: %s", pointID, app.Summarize(comment, 80)))
				return nil
			}); err != nil {
				return nil, err
			}

			return mcp.NewToolResultText(fmt.Sprintf("Comment added to point %s", pointID)), nil
		},
	)
}

// registerSetPointStatus registers the set_point_status tool.
func registerSetPointStatus(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("set_point_status",
			mcp.WithDescription("Set a point lifecycle flag. reviewed/tested require implemented first unless force or the configured bypass is set. Clearing implemented also clears reviewed and tested."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("point_id", mcp.Required(), mcp.Description("Point ID")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Which flag to set"), mcp.Enum("implemented", "reviewed", "tested")),
			mcp.WithBoolean("value", mcp.Description("Flag value (default: true)")),
			mcp.WithBoolean("force", mcp.Description("Bypass the implemented gate (administrative skip)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			pointID, err := requireString(args, "point_id")
			if err != nil {
				return nil, err
			}
			status, err := requireString(args, "status")
			if err != nil {
				return nil, err
			}
			value := optionalBool(args, "value", true)
			bypass := optionalBool(args, "force", false) || svc.Policy().AllowStatusBypass()

			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				pt := p.Point(pointID)
				if pt == nil {
					return &domain.NotFoundError{Kind: "point", ID: pointID}
				}
				switch status {
				case "implemented":
					pt.SetImplemented(value)
				case "reviewed":
					if err := pt.SetReviewed(value, bypass); err != nil {
						return err
					}
				case "tested":
					if err := pt.SetTested(value, bypass); err != nil {
						return err
					}
				default:
					return fmt.Errorf("unknown status %q", status)
				}
				pt.UpdatedAt = time.Now()
				logf("point_"+status, fmt.Sprintf("point %s -> %v", pointID, value))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q point %q %s=%v", planID, pointID, status, value)
			return mcp.NewToolResultText(fmt.Sprintf("Point %s %s set to %v", pointID, status, value)), nil
		},
	)
}

// registerSetPointRework registers the set_point_rework tool.
func registerSetPointRework(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("set_point_rework",
			mcp.WithDescription("Flag a point for rework with a reason (resets implemented/reviewed/tested), or clear the flag with value=false."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithString("point_id", mcp.Required(), mcp.Description("Point ID")),
			mcp.WithBoolean("value", mcp.Description("Rework flag value (default: true)")),
			mcp.WithString("reason", mcp.Description("Why the point needs rework (required when flagging)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			pointID, err := requireString(args, "point_id")
			if err != nil {
				return nil, err
			}
			value := optionalBool(args, "value", true)
			reason := optionalString(args, "reason")
			if value && reason == "" {
				return nil, fmt.Errorf("reason is required when flagging rework")
			}

			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				pt := p.Point(pointID)
				if pt == nil {
					return &domain.NotFoundError{Kind: "point", ID: pointID}
				}
				if value {
					pt.SetRework(reason)
					logf("point_rework", fmt.Sprintf("point %s: %s", pointID, app.Summarize(reason, 80)))
				} else {
					pt.ClearRework()
					logf("point_rework_cleared", "point "+pointID)
				}
				pt.UpdatedAt = time.Now()
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q point %q rework=%v", planID, pointID, value)
			if value {
				return mcp.NewToolResultText(fmt.Sprintf("Point %s flagged for rework: %s", pointID, reason)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Point %s rework cleared", pointID)), nil
		},
	)
}

// registerRemovePoints registers the remove_points tool.
func registerRemovePoints(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("remove_points",
			mcp.WithDescription("Remove points from a plan in a single batch. Dangling references in the remaining points are pruned and stale rework flags cleared. Removed ids are never reused."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
			mcp.WithArray("point_ids", mcp.Required(), mcp.Description("Point ids to remove")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			pointIDs := stringList(args, "point_ids")
			if len(pointIDs) == 0 {
				return nil, fmt.Errorf("point_ids is required and must be a non-empty array")
			}

			if err := svc.Update(planID, func(p *domain.Plan, logf app.LogFunc) error {
				if err := p.RemovePoints(pointIDs); err != nil {
					return err
				}
				logf("points_removed", strings.Join(pointIDs, ", "))
				return nil
			}); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q: removed point(s) %v", planID, pointIDs)
			return mcp.NewToolResultText(fmt.Sprintf("Removed %d point(s) from plan %s", len(pointIDs), planID)), nil
		},
	)
}
