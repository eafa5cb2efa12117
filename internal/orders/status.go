package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// Lifecycle past pending is owned elsewhere; here an order can only be cancelled.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusCancelled: true},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
