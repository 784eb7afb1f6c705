package repository

import (
	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/repository/sqlite"
)

// NewPlanRepository returns a PlanRepository backed by SQLite at the given path.
// The path is typically from policy.StateFile() (default ~/.config/planforge/state.sqlite).
func NewPlanRepository(path string) (app.PlanRepository, error) {
	return sqlite.New(path)
}
