package orders

import "strings"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCompleted: true},
	StatusDelivered:  {StatusCompleted: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether the lifecycle allows from -> to. Customer
// cancellation and payment follow-ups obey it; the admin override does not.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// ParseStatus accepts any casing.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := validNext[st]
	return st, ok
}

// Cancellable reports whether the items of an order in this state are still
// held by the store, so a cancellation must put them back on the shelf.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}
