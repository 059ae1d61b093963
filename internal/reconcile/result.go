package reconcile

import "fmt"

// Status tags the outcome of a mutation.
type Status int

const (
	// AppliedLocally means the mutation changed local state and the request is in flight.
	AppliedLocally Status = iota
	// Confirmed means the server accepted the mutation. Local state was
	// replaced by the server board unless the response was stale.
	Confirmed
	// FailedDangling means the server rejected the mutation or could not be
	// reached. The optimistic change is left in local state.
	FailedDangling
	// Rejected means the mutation could not be applied locally and was never sent.
	Rejected
)

func (s Status) String() string {
	switch s {
	case AppliedLocally:
		return "applied_locally"
	case Confirmed:
		return "confirmed"
	case FailedDangling:
		return "failed_dangling"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result reports one stage of a mutation.
type Result struct {
	Status   Status
	Mutation string
	// Version is the server board version carried by a Confirmed result.
	Version int64
	// Stale is set on a Confirmed result whose board was older than local state
	// and therefore not applied.
	Stale bool
	Err   error
}

// Terminal reports whether no further result follows.
func (r Result) Terminal() bool {
	return r.Status != AppliedLocally
}
