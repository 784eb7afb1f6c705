package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/domain"
	"github.com/jaakkos/planforge/internal/policy"
	"github.com/jaakkos/planforge/internal/workflow"
)

type memRepo struct {
	plans map[string]*domain.Plan
}

func (r *memRepo) LoadAll() (map[string]*domain.Plan, error) {
	return map[string]*domain.Plan{}, nil
}

func (r *memRepo) Save(plan *domain.Plan) error {
	r.plans[plan.ID] = plan
	return nil
}

func (r *memRepo) Delete(id string) error {
	delete(r.plans, id)
	return nil
}

// newTestService creates a PlanService over an in-memory repository.
func newTestService(t *testing.T, cfg *policy.Config) *app.PlanService {
	t.Helper()
	if cfg == nil {
		cfg = policy.DefaultConfig()
	}
	cfg.StateFile = filepath.Join(t.TempDir(), "state.sqlite")
	svc, err := app.NewPlanService(&memRepo{plans: map[string]*domain.Plan{}}, policy.New(cfg), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewPlanService: %v", err)
	}
	return svc
}

// testServer creates a MCPServer with all tools registered for testing.
func testServer(svc *app.PlanService) *server.MCPServer {
	logger := log.New(io.Discard, "", 0)
	s := server.NewMCPServer("test", "1.0.0")
	registry := app.NewSessionRegistry()
	engine := workflow.NewEngine(svc, logger)
	Register(s, svc, engine, logger, registry)
	return s
}

// callTool calls a registered tool via the MCPServer's HandleMessage.
// Returns the parsed CallToolResult or an error.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()

	reqJSON, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	respJSON := s.HandleMessage(context.Background(), reqJSON)

	respBytes, marshalErr := json.Marshal(respJSON)
	if marshalErr != nil {
		t.Fatalf("marshal response: %v", marshalErr)
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	var result mcp.CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	return &result, nil
}

// resultText extracts the first text content from a CallToolResult.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}

// createTestPlan creates a plan through the create_plan tool.
func createTestPlan(t *testing.T, s *server.MCPServer, id string) {
	t.Helper()
	if _, err := callTool(t, s, "create_plan", map[string]any{
		"id":                id,
		"name":              "Plan " + id,
		"short_description": "short",
		"long_description":  "long",
	}); err != nil {
		t.Fatalf("create_plan: %v", err)
	}
}

// validPointArgs returns a structurally valid point object for add_points.
func validPointArgs(title string) map[string]any {
	return map[string]any{
		"title":                title,
		"short_description":    "s",
		"detailed_description": "d",
		"review_instructions":  "r",
		"testing_instructions": "t",
		"depends_on":           []any{"-1"},
	}
}
