package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tecnolua/ClubePharma/internal/catalog"
	"github.com/tecnolua/ClubePharma/internal/money"
)

// Item is one cart line. Product is the live product row, not a snapshot.
type Item struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"createdAt"`
	Product   catalog.Product `json:"product"`
}

type Line struct {
	ID           string          `json:"id"`
	Quantity     int             `json:"quantity"`
	Product      catalog.Product `json:"product"`
	ItemSubtotal decimal.Decimal `json:"itemSubtotal"`
	ItemDiscount decimal.Decimal `json:"itemDiscount"`
	ItemTotal    decimal.Decimal `json:"itemTotal"`
}

type Summary struct {
	money.Totals
	ItemCount int `json:"itemCount"`
}

type View struct {
	Items   []Line  `json:"items"`
	Summary Summary `json:"summary"`
}

// Price builds the view with the same line arithmetic checkout uses.
func Price(items []Item) View {
	v := View{Items: make([]Line, 0, len(items))}
	for _, it := range items {
		l := money.PriceLine(it.Product.Price, it.Product.DiscountPercent, it.Quantity)
		v.Summary.Add(l)
		v.Items = append(v.Items, Line{
			ID:           it.ID,
			Quantity:     it.Quantity,
			Product:      it.Product,
			ItemSubtotal: l.Subtotal,
			ItemDiscount: l.Discount,
			ItemTotal:    l.Total,
		})
	}
	v.Summary.ItemCount = len(items)
	return v
}
