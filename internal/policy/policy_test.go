package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
workspace_root: /tmp/project
state_file: state.sqlite
workflow:
  roles:
    point_implement: developer
  templates:
    point_implement: "Implement <point_name>"
  allow_status_bypass: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	pol := New(cfg)

	if got := pol.StateFile(); got != filepath.Join("/tmp/project", "state.sqlite") {
		t.Fatalf("StateFile = %q", got)
	}
	if pol.Role("point_implement") != "developer" {
		t.Fatalf("Role = %q", pol.Role("point_implement"))
	}
	if pol.Template("point_implement") != "Implement <point_name>" {
		t.Fatalf("Template = %q", pol.Template("point_implement"))
	}
	if pol.Template("unknown_step") != "" {
		t.Fatal("unknown step should resolve to empty template")
	}
	if !pol.AllowStatusBypass() {
		t.Fatal("AllowStatusBypass not loaded")
	}
}

func TestDefaultConfigWorkflowNeverNil(t *testing.T) {
	pol := New(&Config{})
	if pol.Workflow() == nil {
		t.Fatal("Workflow() must never be nil")
	}
	if pol.AllowStatusBypass() {
		t.Fatal("bypass must default off")
	}
}

func TestValidatePath(t *testing.T) {
	pol := New(&Config{WorkspaceRoot: "/tmp/project"})
	if _, err := pol.ValidatePath("sub/file.go"); err != nil {
		t.Fatalf("in-workspace path rejected: %v", err)
	}
	if _, err := pol.ValidatePath("../outside"); err == nil {
		t.Fatal("escape not rejected")
	}
}

func TestIsToolEnabled(t *testing.T) {
	pol := New(&Config{EnabledTools: []string{"create_plan", "evaluate_plan"}})
	if !pol.IsToolEnabled("create_plan") {
		t.Fatal("listed tool disabled")
	}
	if pol.IsToolEnabled("delete_plan") {
		t.Fatal("unlisted tool enabled")
	}
	all := New(DefaultConfig())
	if !all.IsToolEnabled("anything") {
		t.Fatal("wildcard not honored")
	}
}
