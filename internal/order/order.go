package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the only mutable field of an order after creation. Any
// enumerated status may replace any other; the update path only validates
// membership in the set.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPreparing Status = "PREPARING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var statuses = []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusCompleted, StatusCancelled}

// ParseStatus maps a request value onto the enum, case-insensitively.
func ParseStatus(s string) (Status, error) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range statuses {
		if candidate == known {
			return known, nil
		}
	}
	return "", ErrInvalidStatus
}

// Order is an immutable snapshot of a cart at checkout time.
type Order struct {
	ID        int             `json:"orderId"`
	UserID    int             `json:"userId"`
	Status    Status          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt string          `json:"createdAt"`
	Items     []Item          `json:"items"`
}

// Item copies product id, quantity and unit price verbatim from the cart
// line. The catalog is not consulted again at checkout.
type Item struct {
	ID        int             `json:"itemId"`
	OrderID   int             `json:"orderId"`
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// ItemView adds the derived subtotal and product display data.
type ItemView struct {
	ID          int             `json:"itemId"`
	ProductID   int             `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// View is the response shape for order reads. Subtotals are recomputed on
// every read; only the order total itself is stored, fixed at checkout.
type View struct {
	ID        int             `json:"orderId"`
	UserID    int             `json:"userId"`
	Status    Status          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt string          `json:"createdAt"`
	Items     []ItemView      `json:"items"`
}
