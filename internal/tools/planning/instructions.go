package planning

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// InstructionsText returns the static instruction string used by the MCP
// server. The server sends this during initialization.
func InstructionsText() string {
	return `You are an agent driving plans through the planforge workflow.

## The workflow loop

Every plan moves through two phases. The server computes the single next
required step; never guess your own ordering.

1. evaluate_plan plan_id='<id>'  -- get the next step: instruction, step tag,
   recommended role, and a continuation (the 'done' object).
2. Do what the instruction says, using the plan/point tools to record results.
3. report_step_result with the continuation's op/binding/point_id and
   success=true or success=false (put review feedback in info).
4. Repeat until evaluate_plan returns is_done=true.

## Creation phase (before any implementation)

- update_plan_descriptions  -- write name and descriptions
- set_architecture          -- attach the components/connections document
- add_points                -- decompose into points; every point needs
  depends_on (["-1"] for independent points)
- Review steps walk a checklist one item at a time; report each item
  through report_step_result.

## Execution phase

- set_point_status          -- implemented/reviewed/tested, gated in order
- set_point_rework          -- flag a point back for rework with a reason
- set_plan_reviewed / set_plan_needs_work / set_plan_accepted
- Acceptance requires every point reviewed AND tested.

## Rules

- ONE step at a time: always act on the latest evaluate_plan output.
- Failed reviews go through report_step_result success=false with the
  reason in info; the workflow routes the rework.
- State is global at ~/.config/planforge/state.sqlite.
`
}

// registerPrompts registers reusable prompt templates with the mcp-go server.
func registerPrompts(s *server.MCPServer) {
	s.AddPrompt(
		mcp.NewPrompt("plan-feature",
			mcp.WithPromptDescription("Create a plan for a feature and drive it through the creation phase."),
			mcp.WithArgument("feature", mcp.ArgumentDescription("Feature name or description"), mcp.RequiredArgument()),
		),
		func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			feature := req.Params.Arguments["feature"]
			if feature == "" {
				feature = "the requested feature"
			}
			return &mcp.GetPromptResult{
				Description: "Feature planning workflow",
				Messages: []mcp.PromptMessage{
					{
						Role: mcp.RoleUser,
						Content: mcp.TextContent{
							Type: "text",
							Text: fmt.Sprintf(`Create and specify a plan for: %s

1. Analyze the codebase to understand the current architecture.
2. create_plan id='<short-id>' name='...' with a one-line summary.
3. Call evaluate_plan and follow its instructions step by step: descriptions,
   architecture document, then point decomposition.
4. Report every step through report_step_result before evaluating again.
5. Stop once evaluate_plan reports the creation phase complete.`, feature),
						},
					},
				},
			}, nil
		},
	)

	s.AddPrompt(
		mcp.NewPrompt("review-point",
			mcp.WithPromptDescription("Review an implemented point against its review instructions."),
			mcp.WithArgument("plan_id", mcp.ArgumentDescription("Plan ID"), mcp.RequiredArgument()),
			mcp.WithArgument("point_id", mcp.ArgumentDescription("Point ID"), mcp.RequiredArgument()),
		),
		func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			planID := req.Params.Arguments["plan_id"]
			pointID := req.Params.Arguments["point_id"]
			return &mcp.GetPromptResult{
				Description: "Point review workflow",
				Messages: []mcp.PromptMessage{
					{
						Role: mcp.RoleUser,
						Content: mcp.TextContent{
							Type: "text",
							Text: fmt.Sprintf(`Review point %s of plan %s.

1. get_plan plan_id='%s' to see the point's review instructions.
2. Inspect the implementation against those instructions.
3. If the point passes: report_step_result op='point_review' plan_id='%s' point_id='%s' success=true
4. If it fails: the same call with success=false and the findings in info;
   the point is routed back for rework automatically.`, pointID, planID, planID, planID, pointID),
						},
					},
				},
			}, nil
		},
	)
}
