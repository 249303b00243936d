package order

import (
	"errors"
	"sync"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrForbidden     = errors.New("order belongs to another user")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidStatus = errors.New("invalid order status")
)

// Repository persists immutable orders. Finalize writes the order with all
// of its items and removes exactly the snapshotted cart lines as one unit:
// a reader never observes the order without its items, or a cleared cart
// without the order. Only the lines named by cartItemIDs are deleted, so a
// line added to the cart after the snapshot was read stays in the cart.
type Repository interface {
	Finalize(ord Order, cartItemIDs []int) (Order, error)
	GetByID(id int) (Order, error)
	ListByUser(userID int) ([]Order, error)
	ListAll() ([]Order, error)
	UpdateStatus(id int, status Status) (Order, error)
}

// CartItemRemover is what the in-memory repository needs from the cart
// store to drop the snapshotted lines during Finalize. The Postgres
// repository deletes the same ids directly inside its transaction instead.
type CartItemRemover interface {
	RemoveItems(itemIDs []int) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu         sync.RWMutex
	orders     []Order
	carts      CartItemRemover
	nextID     int
	nextItemID int
}

func NewInMemoryRepository(carts CartItemRemover) *InMemoryRepository {
	return &InMemoryRepository{carts: carts, nextID: 1, nextItemID: 1}
}

func (r *InMemoryRepository) Finalize(ord Order, cartItemIDs []int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ord.ID = r.nextID
	r.nextID++
	for i := range ord.Items {
		ord.Items[i].ID = r.nextItemID
		ord.Items[i].OrderID = ord.ID
		r.nextItemID++
	}

	if err := r.carts.RemoveItems(cartItemIDs); err != nil {
		return Order{}, err
	}

	r.orders = append(r.orders, ord)
	return ord, nil
}

func (r *InMemoryRepository) GetByID(id int) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ord := range r.orders {
		if ord.ID == id {
			return ord, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) ListByUser(userID int) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Order, 0)
	// newest first, ids are monotonic
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].UserID == userID {
			out = append(out, r.orders[i])
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ListAll() ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Order, len(r.orders))
	copy(out, r.orders)
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(id int, status Status) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, ord := range r.orders {
		if ord.ID == id {
			ord.Status = status
			r.orders[i] = ord
			return ord, nil
		}
	}
	return Order{}, ErrNotFound
}
