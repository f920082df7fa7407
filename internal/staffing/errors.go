package staffing

import "errors"

var (
	// ErrDealBusy means another formation or transition holds the deal
	// lock. Callers retry later.
	ErrDealBusy = errors.New("staffing: deal is busy")
	// ErrDealClosed means the deal is immutable.
	ErrDealClosed = errors.New("staffing: deal is closed")
	// ErrActivePodExists means a concurrent formation won the race. The
	// existing active pod is authoritative; callers read it back instead
	// of retrying.
	ErrActivePodExists = errors.New("staffing: deal already has an active pod")
)

// PolicyViolationError means a normalized proposal still failed a hard
// invariant after repair. The formation aborts with no partial writes and
// is not retried automatically.
type PolicyViolationError struct {
	Reason string
}

func (e *PolicyViolationError) Error() string {
	return "staffing: policy violation: " + e.Reason
}
