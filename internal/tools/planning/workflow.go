package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/workflow"
)

// registerEvaluatePlan registers the evaluate_plan tool.
func registerEvaluatePlan(s *server.MCPServer, svc *app.PlanService, engine *workflow.Engine, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("evaluate_plan",
			mcp.WithDescription("Evaluate a plan and get the single next required workflow step: its instruction, the step tag, affected points, a recommended role, and the continuation to report the outcome through report_step_result."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}

			res, err := engine.Evaluate(planID)
			if err != nil {
				return nil, err
			}

			doc, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("marshal result: %w", err)
			}
			return mcp.NewToolResultText(string(doc)), nil
		},
	)
}

// registerReportStepResult registers the report_step_result tool.
func registerReportStepResult(s *server.MCPServer, svc *app.PlanService, engine *workflow.Engine, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("report_step_result",
			mcp.WithDescription("Report the outcome of a workflow step through its continuation (the done object from evaluate_plan). On success the bound flag or queue advances; on failure the feedback in info is recorded."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID from the continuation")),
			mcp.WithString("op", mcp.Required(), mcp.Description("Continuation op from evaluate_plan")),
			mcp.WithString("point_id", mcp.Description("Point ID from the continuation, if any")),
			mcp.WithString("binding", mcp.Description("Flag binding from the continuation, if any")),
			mcp.WithBoolean("success", mcp.Required(), mcp.Description("Whether the step succeeded")),
			mcp.WithString("info", mcp.Description("Failure feedback, or the acceptance comment for accept_plan")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			op, err := requireString(args, "op")
			if err != nil {
				return nil, err
			}
			successVal, ok := args["success"].(bool)
			if !ok {
				return nil, fmt.Errorf("success is required")
			}

			c := workflow.Continuation{
				Op:      workflow.Op(op),
				PlanID:  planID,
				PointID: optionalString(args, "point_id"),
				Binding: optionalString(args, "binding"),
			}
			if err := engine.ReportDone(c, successVal, optionalString(args, "info")); err != nil {
				return nil, err
			}

			logger.Printf("Plan %q: step %s reported success=%v", planID, op, successVal)
			return mcp.NewToolResultText(fmt.Sprintf("Recorded %s success=%v for plan %s. Call evaluate_plan for the next step.", op, successVal, planID)), nil
		},
	)
}

// registerCheckStepComplete registers the check_step_complete tool.
func registerCheckStepComplete(s *server.MCPServer, svc *app.PlanService, engine *workflow.Engine, logger *log.Logger) {
	addTool(s, svc,
		mcp.NewTool("check_step_complete",
			mcp.WithDescription("Poll whether a workflow step already completed (the complete object from evaluate_plan), without re-evaluating."),
			mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan ID from the continuation")),
			mcp.WithString("op", mcp.Required(), mcp.Description("Continuation op from evaluate_plan")),
			mcp.WithString("point_id", mcp.Description("Point ID from the continuation, if any")),
			mcp.WithString("binding", mcp.Description("Flag binding from the continuation, if any")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			planID, err := requireString(args, "plan_id")
			if err != nil {
				return nil, err
			}
			op, err := requireString(args, "op")
			if err != nil {
				return nil, err
			}

			c := workflow.Continuation{
				Op:      workflow.Op(op),
				PlanID:  planID,
				PointID: optionalString(args, "point_id"),
				Binding: optionalString(args, "binding"),
			}
			done, err := engine.CheckComplete(c)
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(fmt.Sprintf("complete: %v", done)), nil
		},
	)
}
