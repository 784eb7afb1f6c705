package app

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/jaakkos/planforge/internal/domain"
	"github.com/jaakkos/planforge/internal/policy"
)

// Triggerable is something that can be triggered after a state write (e.g. Notifier).
type Triggerable interface {
	Trigger()
}

// LogFunc appends an activity entry to the plan being mutated. Timestamps
// are assigned by the service and are strictly increasing per process.
type LogFunc func(event, detail string)

// PlanService owns the in-memory plan map — the single source of truth
// between saves. All plans are loaded eagerly at construction and every
// mutation is flushed synchronously through the repository before the
// operation reports success.
type PlanService struct {
	repo     PlanRepository
	policy   *policy.Policy
	logger   *log.Logger
	mu       sync.Mutex
	plans    map[string]*domain.Plan
	lastLog  time.Time   // monotonic guard for log timestamps
	notifier Triggerable // optional; set via SetNotifier after construction
}

// NewPlanService loads every persisted plan and returns the service.
// A load failure is fatal to construction: starting from an empty map
// would let a later Save shadow existing records.
func NewPlanService(repo PlanRepository, pol *policy.Policy, logger *log.Logger) (*PlanService, error) {
	plans, err := repo.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("plan load: %w", err)
	}
	return &PlanService{repo: repo, policy: pol, logger: logger, plans: plans}, nil
}

// SetNotifier attaches a Triggerable that is poked after every state write.
func (s *PlanService) SetNotifier(n Triggerable) {
	s.notifier = n
}

// Policy returns the policy for handlers that need templates, bypass flags etc.
func (s *PlanService) Policy() *policy.Policy { return s.policy }

// nextLogTime returns a strictly increasing timestamp. Callers must hold s.mu.
func (s *PlanService) nextLogTime() time.Time {
	ts := time.Now()
	if !ts.After(s.lastLog) {
		ts = s.lastLog.Add(time.Nanosecond)
	}
	s.lastLog = ts
	return ts
}

// Create registers and persists a new plan.
func (s *PlanService) Create(plan *domain.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.plans[plan.ID]; exists {
		return &domain.ValidationError{Reason: fmt.Sprintf("plan %q already exists", plan.ID)}
	}
	plan.AppendLog(domain.LogEntry{Timestamp: s.nextLogTime(), Event: "created", Detail: plan.Name})
	if err := s.save(plan); err != nil {
		return err
	}
	s.plans[plan.ID] = plan
	return nil
}

// Update runs fn against the named plan, bumps updated_at, and persists.
// fn receives a log func for activity entries. If fn fails, nothing is saved.
// If the save fails, the error propagates — a mutation that cannot be durably
// saved must not be reported as successful.
func (s *PlanService) Update(id string, fn func(p *domain.Plan, log LogFunc) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[id]
	if !ok {
		return &domain.NotFoundError{Kind: "plan", ID: id}
	}
	logf := func(event, detail string) {
		plan.AppendLog(domain.LogEntry{Timestamp: s.nextLogTime(), Event: event, Detail: detail})
	}
	if err := fn(plan, logf); err != nil {
		return err
	}
	plan.UpdatedAt = time.Now()
	return s.save(plan)
}

// Query runs fn against the named plan without saving.
func (s *PlanService) Query(id string, fn func(p *domain.Plan) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[id]
	if !ok {
		return &domain.NotFoundError{Kind: "plan", ID: id}
	}
	return fn(plan)
}

// List returns all plan ids, sorted.
func (s *PlanService) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.plans))
	for id := range s.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PendingPlans returns ids of plans that are not yet accepted, sorted.
// Used for the notification payload and the piggyback banner.
func (s *PlanService) PendingPlans() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.plans {
		if !p.Accepted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Delete removes a plan. Incomplete plans require force.
func (s *PlanService) Delete(id string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[id]
	if !ok {
		return &domain.NotFoundError{Kind: "plan", ID: id}
	}
	if !plan.Accepted && !force {
		return &domain.ValidationError{Reason: fmt.Sprintf("plan %q is not accepted; pass force to delete anyway", id)}
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	delete(s.plans, id)
	_ = TouchNotifySignal(s.policy.SignalFilePath())
	if s.notifier != nil {
		s.notifier.Trigger()
	}
	return nil
}

// save persists the plan and pokes watchers. Callers must hold s.mu.
func (s *PlanService) save(plan *domain.Plan) error {
	if err := s.repo.Save(plan); err != nil {
		return err
	}
	_ = TouchNotifySignal(s.policy.SignalFilePath())
	if s.notifier != nil {
		s.notifier.Trigger()
	}
	return nil
}
