package planning

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/domain"
)

// registerResources adds MCP Resources and Resource Templates so agents can
// read the workflow guide and plan snapshots directly from the server.
func registerResources(s *server.MCPServer, svc *app.PlanService, logger *log.Logger) {
	// ── Static resources ──────────────────────────────────────────────

	// Workflow guide
	s.AddResource(
		mcp.NewResource(
			"planforge://guides/workflow",
			"Plan Workflow Guide",
			mcp.WithResourceDescription("How plans move through creation and execution: the evaluate/report loop, checklists, rework, acceptance."),
			mcp.WithMIMEType("text/markdown"),
		),
		func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			logger.Println("Resource read: guides/workflow")
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "text/markdown",
					Text:     InstructionsText(),
				},
			}, nil
		},
	)

	// ── Resource templates (dynamic) ──────────────────────────────────

	// Plan snapshot template: planforge://plan/{id}
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"planforge://plan/{id}",
			"Plan Snapshot",
			mcp.WithTemplateDescription("The full persisted state of a plan as JSON."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			// Extract the plan id from the URI: planforge://plan/{id}
			id := strings.TrimPrefix(req.Params.URI, "planforge://plan/")
			logger.Printf("Resource template read: plan/%s", id)

			var doc []byte
			if err := svc.Query(id, func(p *domain.Plan) error {
				var err error
				doc, err = json.MarshalIndent(p, "", "  ")
				return err
			}); err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "application/json",
					Text:     string(doc),
				},
			}, nil
		},
	)
}
