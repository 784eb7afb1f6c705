package planning

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/domain"
)

func callRequest(name string) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	return req
}

func TestPiggybackAppendsBannerWhenPending(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.Create(&domain.Plan{ID: "p1", Name: "one"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	mw := PiggybackMiddleware(svc, app.NewSessionRegistry())
	handler := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})

	result, err := handler(context.Background(), callRequest("create_plan"))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.HasPrefix(text, "ok") || !strings.Contains(text, "p1 has pending workflow steps") {
		t.Errorf("banner not appended: %q", text)
	}
}

func TestPiggybackSuppressedTools(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.Create(&domain.Plan{ID: "p1", Name: "one"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	mw := PiggybackMiddleware(svc, app.NewSessionRegistry())
	handler := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})

	for name := range suppressBannerTools {
		result, err := handler(context.Background(), callRequest(name))
		if err != nil {
			t.Fatalf("handler: %v", err)
		}
		if text := result.Content[0].(mcp.TextContent).Text; text != "ok" {
			t.Errorf("%s should not carry a banner: %q", name, text)
		}
	}
}

func TestPiggybackQuietWhenAllAccepted(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.Create(&domain.Plan{ID: "p1", Name: "one", Accepted: true}); err != nil {
		t.Fatalf("create: %v", err)
	}

	mw := PiggybackMiddleware(svc, app.NewSessionRegistry())
	handler := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})

	result, err := handler(context.Background(), callRequest("create_plan"))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if text := result.Content[0].(mcp.TextContent).Text; text != "ok" {
		t.Errorf("no banner expected: %q", text)
	}
}

func TestPiggybackSkipsErrorResults(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.Create(&domain.Plan{ID: "p1", Name: "one"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	mw := PiggybackMiddleware(svc, app.NewSessionRegistry())
	handler := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("boom"), nil
	})

	result, err := handler(context.Background(), callRequest("create_plan"))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if text := result.Content[0].(mcp.TextContent).Text; text != "boom" {
		t.Errorf("error result should be untouched: %q", text)
	}
}

func TestBuildBannerMultiplePlans(t *testing.T) {
	svc := newTestService(t, nil)
	for _, id := range []string{"a", "b"} {
		if err := svc.Create(&domain.Plan{ID: id, Name: id}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	banner := buildBanner(svc)
	if !strings.Contains(banner, "2 plans") || !strings.Contains(banner, "a, b") {
		t.Errorf("banner = %q", banner)
	}
}
