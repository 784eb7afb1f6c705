// Package domain holds plan workflow entities and their invariants.
// It has no dependencies on other packages.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IndependentPoint is the depends_on sentinel marking a point as explicitly
// independent. Every point must carry at least this before the plan counts
// as fully specified.
const IndependentPoint = "-1"

// MaxLogEntries bounds the per-plan activity log; oldest entries are evicted.
const MaxLogEntries = 100

// CreationStep tags which creation sub-step a plan is currently in.
// Persisted so rework can be routed back to the step it interrupted.
type CreationStep string

const (
	StepDescriptionsUpdate CreationStep = "descriptions_update"
	StepDescriptionsReview CreationStep = "descriptions_review"
	StepArchitectureCreate CreationStep = "architecture_create"
	StepArchitectureReview CreationStep = "architecture_review"
	StepPointsCreate       CreationStep = "points_create"
	StepCreationComplete   CreationStep = "complete"
)

// ArchComponent is a declared component in an architecture document.
type ArchComponent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ArchConnection links two declared components.
type ArchConnection struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Description string `json:"description,omitempty"`
}

// ArchitectureDoc is the structured architecture attached to a plan.
type ArchitectureDoc struct {
	Components  []ArchComponent  `json:"components"`
	Connections []ArchConnection `json:"connections"`
}

// LogEntry is one line of a plan's bounded activity log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
}

// PlanPoint is a dependent sub-task within a plan.
type PlanPoint struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	ShortDescription    string   `json:"short_description"`
	DetailedDescription string   `json:"detailed_description"`
	ReviewInstructions  string   `json:"review_instructions"`
	TestingInstructions string   `json:"testing_instructions"`
	ExpectedInputs      string   `json:"expected_inputs,omitempty"`
	ExpectedOutputs     string   `json:"expected_outputs,omitempty"`
	DependsOn           []string `json:"depends_on"`
	CareOnPoints        []string `json:"care_on_points,omitempty"`

	Implemented bool `json:"implemented"`
	Reviewed    bool `json:"reviewed"`
	Tested      bool `json:"tested"`

	NeedRework   bool   `json:"need_rework"`
	ReworkReason string `json:"rework_reason,omitempty"`

	Comments  []string  `json:"comments,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Plan is the top-level unit of tracked work.
type Plan struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	ShortDescription string           `json:"short_description"`
	LongDescription  string           `json:"long_description"`
	Architecture     *ArchitectureDoc `json:"architecture,omitempty"`

	DescriptionsUpdated  bool         `json:"descriptions_updated"`
	DescriptionsReviewed bool         `json:"descriptions_reviewed"`
	ArchitectureCreated  bool         `json:"architecture_created"`
	ArchitectureReviewed bool         `json:"architecture_reviewed"`
	PointsCreated        bool         `json:"points_created"`
	CreationStep         CreationStep `json:"creation_step"`

	// Checklist is the review checklist queue for the current sub-phase.
	// It is cleared and rebuilt whenever the sub-phase changes.
	Checklist []string `json:"checklist,omitempty"`

	Reviewed          bool     `json:"reviewed"`
	NeedsWork         bool     `json:"needs_work"`
	NeedsWorkComments []string `json:"needs_work_comments,omitempty"`
	Accepted          bool     `json:"accepted"`
	AcceptComment     string   `json:"accept_comment,omitempty"`

	Points []PlanPoint `json:"points"`
	Log    []LogEntry  `json:"log"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlan returns a plan in its initial creation state.
func NewPlan(id, name, shortDesc, longDesc string) *Plan {
	now := time.Now()
	return &Plan{
		ID:               id,
		Name:             name,
		ShortDescription: shortDesc,
		LongDescription:  longDesc,
		CreationStep:     StepDescriptionsUpdate,
		Points:           []PlanPoint{},
		Log:              []LogEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Point returns the point with the given id, or nil.
func (p *Plan) Point(id string) *PlanPoint {
	for i := range p.Points {
		if p.Points[i].ID == id {
			return &p.Points[i]
		}
	}
	return nil
}

// NextPointID returns the next sequential point id (max numeric id + 1).
// Ids are never reused after removal because removal does not shrink the max.
func (p *Plan) NextPointID() string {
	max := 0
	for _, pt := range p.Points {
		if n, err := strconv.Atoi(pt.ID); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}

// AppendLog appends an activity entry, evicting the oldest beyond MaxLogEntries.
func (p *Plan) AppendLog(e LogEntry) {
	p.Log = append(p.Log, e)
	if len(p.Log) > MaxLogEntries {
		p.Log = p.Log[len(p.Log)-MaxLogEntries:]
	}
}

// PointCounts returns total/implemented/reviewed/tested counts.
func (p *Plan) PointCounts() (total, implemented, reviewed, tested int) {
	total = len(p.Points)
	for _, pt := range p.Points {
		if pt.Implemented {
			implemented++
		}
		if pt.Reviewed {
			reviewed++
		}
		if pt.Tested {
			tested++
		}
	}
	return total, implemented, reviewed, tested
}

// AllPointsReviewedAndTested reports whether every point passed review and test.
func (p *Plan) AllPointsReviewedAndTested() bool {
	for _, pt := range p.Points {
		if !pt.Reviewed || !pt.Tested {
			return false
		}
	}
	return true
}

// SetReviewed sets the plan-level reviewed flag. Marking a plan reviewed
// invalidates any prior acceptance.
func (p *Plan) SetReviewed(v bool) {
	p.Reviewed = v
	if v {
		p.Accepted = false
		p.AcceptComment = ""
	}
}

// SetNeedsWork flags the plan as needing work and queues the feedback
// comment. Clears reviewed and accepted in the same operation.
func (p *Plan) SetNeedsWork(comment string) {
	p.NeedsWork = true
	if comment != "" {
		p.NeedsWorkComments = append(p.NeedsWorkComments, comment)
	}
	p.Reviewed = false
	p.Accepted = false
	p.AcceptComment = ""
}

// OldestFeedback returns the first unresolved needs-work comment, or "".
func (p *Plan) OldestFeedback() string {
	if len(p.NeedsWorkComments) == 0 {
		return ""
	}
	return p.NeedsWorkComments[0]
}

// ResolveFeedback removes the oldest needs-work comment and clears the
// needs-work flag once the queue is empty. Returns the resolved comment.
func (p *Plan) ResolveFeedback() string {
	if len(p.NeedsWorkComments) == 0 {
		p.NeedsWork = false
		return ""
	}
	resolved := p.NeedsWorkComments[0]
	p.NeedsWorkComments = p.NeedsWorkComments[1:]
	if len(p.NeedsWorkComments) == 0 {
		p.NeedsWork = false
	}
	return resolved
}

// Accept marks the plan accepted. Fails unless every point is reviewed and tested.
func (p *Plan) Accept(comment string) error {
	for _, pt := range p.Points {
		if !pt.Reviewed || !pt.Tested {
			return &ValidationError{
				PointID: pt.ID,
				Reason:  fmt.Sprintf("point %s is not reviewed and tested", pt.ID),
			}
		}
	}
	p.Accepted = true
	p.AcceptComment = comment
	return nil
}

// InsertPoints inserts the given points after the point with id afterID
// (or at the head when afterID is empty), assigning fresh sequential ids.
// Returns the assigned ids in insertion order.
func (p *Plan) InsertPoints(afterID string, points []PlanPoint) ([]string, error) {
	pos := 0
	if afterID != "" {
		found := false
		for i := range p.Points {
			if p.Points[i].ID == afterID {
				pos = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, &NotFoundError{Kind: "point", ID: afterID}
		}
	}

	now := time.Now()
	ids := make([]string, 0, len(points))
	for i := range points {
		points[i].ID = p.NextPointID()
		points[i].UpdatedAt = now
		ids = append(ids, points[i].ID)
		p.Points = append(p.Points, PlanPoint{})
		copy(p.Points[pos+i+1:], p.Points[pos+i:])
		p.Points[pos+i] = points[i]
	}
	return ids, nil
}

// RemovePoints removes the given points, prunes dangling references from the
// remaining points' depends_on/care_on_points lists, and clears rework flags
// across the remaining plan (stale feedback may cite removed points).
func (p *Plan) RemovePoints(ids []string) error {
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if p.Point(id) == nil {
			return &NotFoundError{Kind: "point", ID: id}
		}
		removed[id] = true
	}

	kept := p.Points[:0]
	for _, pt := range p.Points {
		if !removed[pt.ID] {
			kept = append(kept, pt)
		}
	}
	p.Points = kept

	for i := range p.Points {
		pt := &p.Points[i]
		pt.DependsOn = pruneIDs(pt.DependsOn, removed)
		pt.CareOnPoints = pruneIDs(pt.CareOnPoints, removed)
		if pt.NeedRework {
			pt.NeedRework = false
			pt.ReworkReason = ""
		}
	}
	return nil
}

func pruneIDs(ids []string, removed map[string]bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if !removed[id] {
			out = append(out, id)
		}
	}
	return out
}

// SetImplemented sets the point's implemented flag. Clearing it also clears
// reviewed and tested, which are gated on implementation.
func (pt *PlanPoint) SetImplemented(v bool) {
	pt.Implemented = v
	if !v {
		pt.Reviewed = false
		pt.Tested = false
	}
}

// SetReviewed sets the point's reviewed flag. A point cannot be reviewed
// before it is implemented unless the administrative bypass is enabled.
func (pt *PlanPoint) SetReviewed(v, bypass bool) error {
	if v && !pt.Implemented && !bypass {
		return &PreconditionError{
			PointID: pt.ID,
			Reason:  fmt.Sprintf("point %s is not implemented", pt.ID),
		}
	}
	pt.Reviewed = v
	return nil
}

// SetTested sets the point's tested flag, gated like SetReviewed.
func (pt *PlanPoint) SetTested(v, bypass bool) error {
	if v && !pt.Implemented && !bypass {
		return &PreconditionError{
			PointID: pt.ID,
			Reason:  fmt.Sprintf("point %s is not implemented", pt.ID),
		}
	}
	pt.Tested = v
	return nil
}

// SetRework flags the point for rework, resetting its whole lifecycle.
func (pt *PlanPoint) SetRework(reason string) {
	pt.NeedRework = true
	pt.ReworkReason = reason
	pt.Implemented = false
	pt.Reviewed = false
	pt.Tested = false
}

// ClearRework clears the rework flag after the point has been redone.
func (pt *PlanPoint) ClearRework() {
	pt.NeedRework = false
	pt.ReworkReason = ""
}

// AddComment appends a timestamp-prefixed free-text comment.
func (pt *PlanPoint) AddComment(comment string, at time.Time) {
	pt.Comments = append(pt.Comments, fmt.Sprintf("[%s] %s", at.Format(time.RFC3339), comment))
}

// IsIndependent reports whether the point is explicitly independent.
func (pt *PlanPoint) IsIndependent() bool {
	return len(pt.DependsOn) == 1 && pt.DependsOn[0] == IndependentPoint
}

// DependsOnList renders depends_on for prompt interpolation.
func (pt *PlanPoint) DependsOnList() string {
	if len(pt.DependsOn) == 0 {
		return "(unset)"
	}
	return strings.Join(pt.DependsOn, ", ")
}
