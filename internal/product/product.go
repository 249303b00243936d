package product

import "github.com/shopspring/decimal"

// Product is a menu entry. Price is a decimal so money never goes through
// floats; it is frozen into cart lines at add time, not read back later.
type Product struct {
	ID          int             `json:"productId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Available   bool            `json:"available"`
	Image       string          `json:"image,omitempty"`
}

// AllowedCategories contains the supported menu categories.
var AllowedCategories = []string{
	"burger",
	"side",
	"drink",
	"dessert",
}

func ValidCategory(category string) bool {
	for _, c := range AllowedCategories {
		if c == category {
			return true
		}
	}
	return false
}
