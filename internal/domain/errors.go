package domain

import "fmt"

// NotFoundError reports an unknown plan or point id.
type NotFoundError struct {
	Kind string // "plan" or "point"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ValidationError reports a structurally invalid request: a missing required
// point field, a malformed dependency or architecture reference, deletion of
// an incomplete plan without force, or premature acceptance.
type ValidationError struct {
	PointID string // offending point, when applicable
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.PointID != "" {
		return fmt.Sprintf("validation failed for point %s: %s", e.PointID, e.Reason)
	}
	return "validation failed: " + e.Reason
}

// PreconditionError reports a status change attempted out of lifecycle order,
// e.g. reviewing a point that was never implemented.
type PreconditionError struct {
	PointID string
	Reason  string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}
