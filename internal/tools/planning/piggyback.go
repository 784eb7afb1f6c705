package planning

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/planforge/internal/app"
)

// suppressBannerTools lists tools that already display pending state or would
// cause redundant loops if they included the piggyback banner.
var suppressBannerTools = map[string]struct{}{
	"evaluate_plan":    {},
	"get_plan":         {},
	"get_activity_log": {},
}

// PiggybackMiddleware returns a mcp-go ToolHandlerMiddleware that appends a
// banner to tool responses while plans still have pending workflow steps.
// It also records session activity in the registry.
func PiggybackMiddleware(svc *app.PlanService, registry *app.SessionRegistry) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if session := server.ClientSessionFromContext(ctx); session != nil {
				registry.TouchSession(session.SessionID())
			}

			result, err := next(ctx, req)
			if err != nil || result == nil {
				return result, err
			}
			if result.IsError {
				return result, nil
			}

			if _, suppress := suppressBannerTools[req.Params.Name]; suppress {
				return result, nil
			}

			banner := buildBanner(svc)
			if banner == "" {
				return result, nil
			}

			appendBannerToResult(result, banner)
			return result, nil
		}
	}
}

// buildBanner reports plans with pending work, or "" when everything is accepted.
func buildBanner(svc *app.PlanService) string {
	pending := svc.PendingPlans()
	if len(pending) == 0 {
		return ""
	}
	if len(pending) == 1 {
		return fmt.Sprintf("\n\n---\nPlan %s has pending workflow steps. Call evaluate_plan to get the next one.", pending[0])
	}
	return fmt.Sprintf("\n\n---\n%d plans have pending workflow steps (%s). Call evaluate_plan on one of them.",
		len(pending), strings.Join(pending, ", "))
}

// appendBannerToResult appends text to the last text content block, or adds a new one.
func appendBannerToResult(result *mcp.CallToolResult, banner string) {
	for i := len(result.Content) - 1; i >= 0; i-- {
		if tc, ok := result.Content[i].(mcp.TextContent); ok {
			result.Content[i] = mcp.TextContent{
				Annotated: tc.Annotated,
				Type:      "text",
				Text:      tc.Text + banner,
			}
			return
		}
	}
	// No text block found; add one
	result.Content = append(result.Content, mcp.TextContent{
		Type: "text",
		Text: banner,
	})
}
