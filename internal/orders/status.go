package orders

import "fmt"

type Status string

const (
	StatusPendingApproval Status = "pending_admin_approval"
	StatusApproved        Status = "approved"
	StatusProcessing      Status = "processing"
	StatusShipped         Status = "shipped"
	StatusCompleted       Status = "completed"
	StatusRejected        Status = "rejected"
	StatusCancelled       Status = "cancelled"
)

// AllStatuses is the closed set of order states, in lifecycle order.
var AllStatuses = []Status{
	StatusPendingApproval,
	StatusApproved,
	StatusProcessing,
	StatusShipped,
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
}

var validNext = map[Status]map[Status]bool{
	StatusPendingApproval: {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
	StatusApproved:        {StatusProcessing: true, StatusShipped: true, StatusCompleted: true, StatusCancelled: true},
	StatusProcessing:      {StatusShipped: true, StatusCompleted: true, StatusCancelled: true},
	StatusShipped:         {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:       {},
	StatusRejected:        {},
	StatusCancelled:       {},
}

// ParseStatus rejects anything outside the closed enumeration.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validNext[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func (s Status) String() string { return string(s) }

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) IsTerminal() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

// ReleasesStock reports whether entering s hands reserved stock back to the ledger.
func (s Status) ReleasesStock() bool {
	return s == StatusRejected || s == StatusCancelled
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
