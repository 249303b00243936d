package cart

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrCartNotFound       = errors.New("cart not found")
	ErrItemNotFound       = errors.New("cart item not found")
	ErrForbidden          = errors.New("cart item belongs to another user")
	ErrProductUnavailable = errors.New("product not available")
)

// Repository owns the cart aggregate and its lines. AddItem must be an
// atomic increment: two concurrent adds for the same (cart, product) pair
// both land, never a lost update. A line whose quantity drops to zero or
// below is removed, never stored.
type Repository interface {
	GetOrCreate(userID int, now string) (Cart, error)
	GetByUser(userID int) (Cart, error)
	ListItems(cartID int) ([]Item, error)
	GetItem(itemID int) (Item, error)
	FindItem(cartID, productID int) (Item, error)
	AddItem(cartID, productID, delta int, unitPrice decimal.Decimal) error
	SetItemQuantity(itemID, quantity int) error
	DeleteItem(itemID int) error
	RemoveItems(itemIDs []int) error
	ClearItems(cartID int) error
	Touch(cartID int, now string) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu         sync.RWMutex
	carts      []Cart
	items      []Item
	nextCartID int
	nextItemID int
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextCartID: 1, nextItemID: 1}
}

func (r *InMemoryRepository) GetOrCreate(userID int, now string) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.carts {
		if c.UserID == userID {
			return c, nil
		}
	}

	c := Cart{ID: r.nextCartID, UserID: userID, CreatedAt: now, UpdatedAt: now}
	r.nextCartID++
	r.carts = append(r.carts, c)
	return c, nil
}

func (r *InMemoryRepository) GetByUser(userID int) (Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return Cart{}, ErrCartNotFound
}

func (r *InMemoryRepository) ListItems(cartID int) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Item, 0)
	for _, it := range r.items {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) GetItem(itemID int) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (r *InMemoryRepository) FindItem(cartID, productID int) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if it.CartID == cartID && it.ProductID == productID {
			return it, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (r *InMemoryRepository) AddItem(cartID, productID, delta int, unitPrice decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, it := range r.items {
		if it.CartID == cartID && it.ProductID == productID {
			it.Quantity += delta
			if it.Quantity <= 0 {
				r.items = append(r.items[:i], r.items[i+1:]...)
				return nil
			}
			// the stored unit price stays as captured at first add
			r.items[i] = it
			return nil
		}
	}

	if delta <= 0 {
		return nil
	}

	r.items = append(r.items, Item{
		ID:        r.nextItemID,
		CartID:    cartID,
		ProductID: productID,
		Quantity:  delta,
		UnitPrice: unitPrice,
	})
	r.nextItemID++
	return nil
}

func (r *InMemoryRepository) SetItemQuantity(itemID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, it := range r.items {
		if it.ID == itemID {
			it.Quantity = quantity
			r.items[i] = it
			return nil
		}
	}
	return ErrItemNotFound
}

func (r *InMemoryRepository) DeleteItem(itemID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, it := range r.items {
		if it.ID == itemID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItems drops the named lines; ids with no matching line are ignored.
func (r *InMemoryRepository) RemoveItems(itemIDs []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	drop := make(map[int]bool, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = true
	}

	kept := r.items[:0]
	for _, it := range r.items {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	r.items = kept
	return nil
}

func (r *InMemoryRepository) ClearItems(cartID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.items[:0]
	for _, it := range r.items {
		if it.CartID != cartID {
			kept = append(kept, it)
		}
	}
	r.items = kept
	return nil
}

func (r *InMemoryRepository) Touch(cartID int, now string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.carts {
		if c.ID == cartID {
			c.UpdatedAt = now
			r.carts[i] = c
			return nil
		}
	}
	return ErrCartNotFound
}
