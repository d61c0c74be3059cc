package leave

// Status is the request lifecycle state. The zero transitions map
// entry for a status makes it terminal: no transition out is legal.
//
//	pending ─▶ head_approved ─▶ approved
//	   │              └───────▶ rejected
//	   └──────▶ head_rejected
type Status string

const (
	StatusPending      Status = "pending"
	StatusHeadApproved Status = "head_approved"
	StatusHeadRejected Status = "head_rejected"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
)

var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusHeadApproved: true,
		StatusHeadRejected: true,
	},
	StatusHeadApproved: {
		StatusApproved: true,
		StatusRejected: true,
	},
}

// CanTransition reports whether next is a legal successor of s.
func (s Status) CanTransition(next Status) bool {
	return transitions[s][next]
}

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// InFlight reports whether s counts against the one-request-at-a-time
// admission rule.
func (s Status) InFlight() bool {
	return s == StatusPending || s == StatusHeadApproved
}

// InFlightStatuses are the non-terminal states admission control
// queries for.
var InFlightStatuses = []Status{StatusPending, StatusHeadApproved}
