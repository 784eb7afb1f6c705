// Package planning exposes the plan workflow over MCP: plan and point
// mutation tools, the evaluator entrypoint, prompts, and plan resources.
package planning

import (
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/workflow"
)

// Register registers the planning tools, prompt templates, plan resources,
// and the piggyback middleware with the mcp-go server.
func Register(s *server.MCPServer, svc *app.PlanService, engine *workflow.Engine, logger *log.Logger, registry *app.SessionRegistry) {
	// Plan tools (8)
	registerCreatePlan(s, svc, logger)
	registerUpdatePlanDescriptions(s, svc, logger)
	registerSetArchitecture(s, svc, logger)
	registerSetPlanReviewed(s, svc, logger)
	registerSetPlanNeedsWork(s, svc, logger)
	registerSetPlanAccepted(s, svc, logger)
	registerDeletePlan(s, svc, logger)
	registerGetPlan(s, svc, logger)

	// Point tools (7)
	registerAddPoints(s, svc, logger)
	registerChangePoint(s, svc, logger)
	registerSetPointDependencies(s, svc, logger)
	registerAddPointComment(s, svc, logger)
	registerSetPointStatus(s, svc, logger)
	registerSetPointRework(s, svc, logger)
	registerRemovePoints(s, svc, logger)

	// Workflow tools (3) + activity log (1)
	registerEvaluatePlan(s, svc, engine, logger)
	registerReportStepResult(s, svc, engine, logger)
	registerCheckStepComplete(s, svc, engine, logger)
	registerGetActivityLog(s, svc, logger)

	// Prompt templates (plan-feature, review-point)
	registerPrompts(s)

	// Resources (workflow instructions, per-plan snapshots)
	registerResources(s, svc, logger)
}

// addTool registers the tool unless policy disables it by name.
func addTool(s *server.MCPServer, svc *app.PlanService, tool mcp.Tool, handler server.ToolHandlerFunc) {
	if svc != nil && !svc.Policy().IsToolEnabled(tool.Name) {
		return
	}
	s.AddTool(tool, handler)
}
