package app

import "github.com/jaakkos/planforge/internal/domain"

// PlanRepository persists plans as whole documents keyed by plan id.
// LoadAll reads every record eagerly; Save overwrites a single record;
// Delete removes it. Implementations must never partially update a record.
type PlanRepository interface {
	LoadAll() (map[string]*domain.Plan, error)
	Save(plan *domain.Plan) error
	Delete(id string) error
}
