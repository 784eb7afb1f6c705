// Package policy implements configuration and guards for file paths and
// workflow templates.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// GlobalStateDir returns the default global state directory (~/.config/planforge).
func GlobalStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "planforge")
}

// GlobalStateFile returns the default global state file path.
func GlobalStateFile() string {
	return filepath.Join(GlobalStateDir(), "state.sqlite")
}

// WorkflowConfig supplies the instruction templates, checklist templates,
// recommended-role mappings, and completion-callback binding names consumed
// by the workflow evaluator. Every field is optional; the evaluator falls
// back to built-in defaults so minimal deployments and unit tests function
// without a config file.
type WorkflowConfig struct {
	// Templates maps a workflow step name to its instruction template.
	// Templates use <angle_bracket> tokens, e.g. <plan_name>, <point_id>.
	Templates map[string]string `yaml:"templates"`
	// Roles maps a workflow step name to the recommended execution role.
	Roles map[string]string `yaml:"roles"`
	// Bindings maps a workflow step name to the persisted-flag binding used
	// for its completion callback, e.g. "plan.descriptionsReviewed".
	Bindings map[string]string `yaml:"bindings"`

	// Checklist templates: "- " marker lines start items, continuation lines
	// are appended to the current item.
	DescriptionsChecklist string `yaml:"descriptions_checklist"`
	ArchitectureChecklist string `yaml:"architecture_checklist"`
	PointReviewChecklist  string `yaml:"point_review_checklist"`
	PlanReviewChecklist   string `yaml:"plan_review_checklist"`

	// AllowStatusBypass lets review/test status be set on unimplemented
	// points (administrative skip).
	AllowStatusBypass bool `yaml:"allow_status_bypass"`
}

// Config holds policy configuration.
type Config struct {
	WorkspaceRoot string   `yaml:"workspace_root"`
	EnabledTools  []string `yaml:"enabled_tools"`
	StateFile     string   `yaml:"state_file"`
	LogFile       string   `yaml:"log_file"`
	HTTPPort      int      `yaml:"http_port"`

	Workflow *WorkflowConfig `yaml:"workflow"`
}

// DefaultConfig returns sensible defaults. Workflow is always set (empty
// maps, built-in templates apply).
func DefaultConfig() *Config {
	return &Config{
		WorkspaceRoot: "",
		EnabledTools:  []string{"*"},
		StateFile:     "",
		Workflow:      &WorkflowConfig{},
	}
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Workflow == nil {
		cfg.Workflow = &WorkflowConfig{}
	}
	return cfg, nil
}

// Policy mediates all configuration access.
type Policy struct {
	config *Config
	mu     sync.RWMutex // protects workspaceRoot for dynamic updates
}

// New creates a new policy.
func New(cfg *Config) *Policy {
	if cfg.Workflow == nil {
		cfg.Workflow = &WorkflowConfig{}
	}
	return &Policy{config: cfg}
}

// WorkspaceRoot returns the current workspace root.
func (p *Policy) WorkspaceRoot() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.WorkspaceRoot
}

// SetWorkspaceRoot dynamically changes the workspace root at runtime.
func (p *Policy) SetWorkspaceRoot(root string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.WorkspaceRoot = root
}

// StateFile returns the configured state file path. If unset, defaults to
// the global state file so all callers on the machine share one store.
func (p *Policy) StateFile() string {
	p.mu.RLock()
	sf := p.config.StateFile
	wsRoot := p.config.WorkspaceRoot
	p.mu.RUnlock()

	if sf == "" {
		return GlobalStateFile()
	}
	if filepath.IsAbs(sf) {
		return sf
	}
	return filepath.Join(wsRoot, sf)
}

// SignalFilePath returns the path to the notify signal file (same directory
// as the state file). Watchers use this to detect state changes without
// relying on SQLite WAL file events.
func (p *Policy) SignalFilePath() string {
	return filepath.Join(filepath.Dir(p.StateFile()), ".planforge-notify")
}

// LogFile returns the configured log file path.
// If unset, defaults to ~/.config/planforge/mcp-planforge.log.
// Set to "none" or "off" to disable file logging entirely.
func (p *Policy) LogFile() string {
	p.mu.RLock()
	lf := p.config.LogFile
	p.mu.RUnlock()

	if lf == "" {
		return filepath.Join(GlobalStateDir(), "mcp-planforge.log")
	}
	return lf
}

// HTTPPort returns the configured HTTP port (0 = auto-assign).
func (p *Policy) HTTPPort() int {
	return p.config.HTTPPort
}

// ValidatePath checks if a path is within the workspace.
func (p *Policy) ValidatePath(path string) (string, error) {
	p.mu.RLock()
	wsRoot := p.config.WorkspaceRoot
	p.mu.RUnlock()

	if !filepath.IsAbs(path) {
		path = filepath.Join(wsRoot, path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	relPath, err := filepath.Rel(wsRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") {
		return "", fmt.Errorf("path %s is outside workspace", path)
	}
	return absPath, nil
}

// IsToolEnabled checks if a tool is enabled.
func (p *Policy) IsToolEnabled(name string) bool {
	for _, t := range p.config.EnabledTools {
		if t == "*" || t == name {
			return true
		}
	}
	return false
}

// Workflow returns the workflow configuration. Never nil.
func (p *Policy) Workflow() *WorkflowConfig {
	return p.config.Workflow
}

// Template returns the configured instruction template for a step, or "".
func (p *Policy) Template(step string) string {
	if p.config.Workflow == nil {
		return ""
	}
	return p.config.Workflow.Templates[step]
}

// Role returns the configured recommended role for a step, or "".
func (p *Policy) Role(step string) string {
	if p.config.Workflow == nil {
		return ""
	}
	return p.config.Workflow.Roles[step]
}

// Binding returns the configured completion-callback binding for a step, or "".
func (p *Policy) Binding(step string) string {
	if p.config.Workflow == nil {
		return ""
	}
	return p.config.Workflow.Bindings[step]
}

// AllowStatusBypass reports whether review/test may skip the implemented gate.
func (p *Policy) AllowStatusBypass() bool {
	return p.config.Workflow != nil && p.config.Workflow.AllowStatusBypass
}
