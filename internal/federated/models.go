package federated

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses only move forward; completed and cancelled are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCompleted: true, StatusCancelled: true},
	StatusProcessing: {StatusCompleted: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Order is the row owned by this service. User and product live in other
// services and are referenced by id only.
type Order struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
}

type Enrichment string

const (
	Enriched Enrichment = "enriched"
	Bare     Enrichment = "bare"
)

// EnrichedOrder is an order decorated with collaborator snapshots taken at
// read time. A bare result carries neither snapshot.
type EnrichedOrder struct {
	Order
	User       *User      `json:"user,omitempty"`
	Product    *Product   `json:"product,omitempty"`
	Enrichment Enrichment `json:"enrichment"`
}

func bare(o Order) EnrichedOrder {
	return EnrichedOrder{Order: o, Enrichment: Bare}
}

type CreateInput struct {
	UserID    int64
	ProductID int64
	Quantity  int
}

type UpdateInput struct {
	Quantity *int
	Status   *Status
}

// Patch is the set of columns a single UPDATE writes.
type Patch struct {
	Quantity   *int
	TotalPrice *decimal.Decimal
	Status     *Status
}

func (p Patch) Empty() bool {
	return p.Quantity == nil && p.TotalPrice == nil && p.Status == nil
}
