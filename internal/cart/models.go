package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Item is a cart entry joined with the current product row.
type Item struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Quantity      int             `json:"quantity"`
	Available     bool            `json:"available"`
	CreatedAt     time.Time       `json:"created_at"`
}

type View struct {
	Items     []Item          `json:"cart"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"itemCount"`
}

// Entry is the stored row plus the stock of its product at read time.
type Entry struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	Quantity      int
	StockQuantity int
}

type ProductStock struct {
	ID            uuid.UUID
	Name          string
	StockQuantity int
}

func newView(items []Item) *View {
	v := &View{Items: items, Subtotal: decimal.Zero, ItemCount: len(items)}
	for i := range v.Items {
		it := &v.Items[i]
		it.Available = it.StockQuantity > 0
		v.Subtotal = v.Subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return v
}
