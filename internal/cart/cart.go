package cart

import "github.com/shopspring/decimal"

// Cart is the per-user mutable aggregate. There is at most one cart per
// user; it is created lazily on first access and never deleted, only
// emptied. The total is never stored on it.
type Cart struct {
	ID        int    `json:"cartId"`
	UserID    int    `json:"userId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Item is a cart line. UnitPrice is the catalog price at the moment the
// product was first added and is never refreshed afterwards.
type Item struct {
	ID        int             `json:"itemId"`
	CartID    int             `json:"cartId"`
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// ItemView is a line plus its computed subtotal and product display data.
type ItemView struct {
	ID          int             `json:"itemId"`
	ProductID   int             `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// View is the response shape for every cart read. Subtotals and the total
// are recomputed on each call rather than persisted, so concurrent item
// mutations can never leave a stale aggregate behind.
type View struct {
	ID        int             `json:"cartId"`
	UserID    int             `json:"userId"`
	Items     []ItemView      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt string          `json:"updatedAt"`
}
