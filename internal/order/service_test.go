package order

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/moroburger/menu-backend/internal/cart"
	"github.com/moroburger/menu-backend/internal/product"
)

type fixture struct {
	orders *Service
	carts  *cart.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	catalog := product.NewService(product.NewInMemoryRepository([]product.Product{
		{ID: 1, Name: "Classic Burger", Price: decimal.RequireFromString("35.00"), Category: "burger", Available: true},
		{ID: 2, Name: "Cola", Price: decimal.RequireFromString("20.00"), Category: "drink", Available: true},
	}))
	cartRepo := cart.NewInMemoryRepository()
	orderRepo := NewInMemoryRepository(cartRepo)

	return fixture{
		orders: NewService(orderRepo, cartRepo, catalog),
		carts:  cart.NewService(cartRepo, catalog),
	}
}

func TestCheckout_SnapshotsCartAndClearsIt(t *testing.T) {
	f := newFixture(t)

	if _, err := f.carts.AddItem(7, 1, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if _, err := f.carts.AddItem(7, 2, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	view, err := f.orders.Checkout(7)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if view.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", view.Status)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 order lines, got %d", len(view.Items))
	}
	if !view.Total.Equal(decimal.RequireFromString("90.00")) {
		t.Fatalf("expected total 90.00, got %s", view.Total)
	}

	byProduct := map[int]ItemView{}
	for _, it := range view.Items {
		byProduct[it.ProductID] = it
	}
	if it := byProduct[1]; it.Quantity != 2 || !it.UnitPrice.Equal(decimal.RequireFromString("35.00")) {
		t.Fatalf("unexpected snapshot for product 1: %+v", it)
	}
	if it := byProduct[2]; !it.Subtotal.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("unexpected subtotal for product 2: %+v", it)
	}

	// the cart is emptied as part of checkout
	cartView, err := f.carts.GetCart(7)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cartView.Items) != 0 {
		t.Fatalf("expected empty cart after checkout, got %+v", cartView.Items)
	}

	// an immediate second checkout has nothing to finalize
	if _, err := f.orders.Checkout(7); err != ErrEmptyCart {
		t.Fatalf("expected ErrEmptyCart on second checkout, got %v", err)
	}
}

// interleavingCartRepo fires a hook right after the checkout snapshot has
// been read, simulating a cart mutation landing between the read and
// Finalize.
type interleavingCartRepo struct {
	*cart.InMemoryRepository
	afterList func()
}

func (r *interleavingCartRepo) ListItems(cartID int) ([]cart.Item, error) {
	items, err := r.InMemoryRepository.ListItems(cartID)
	if r.afterList != nil {
		hook := r.afterList
		r.afterList = nil
		hook()
	}
	return items, err
}

func TestCheckout_AddLandingAfterSnapshotStaysInCart(t *testing.T) {
	catalog := product.NewService(product.NewInMemoryRepository([]product.Product{
		{ID: 1, Name: "Classic Burger", Price: decimal.RequireFromString("35.00"), Category: "burger", Available: true},
		{ID: 2, Name: "Cola", Price: decimal.RequireFromString("20.00"), Category: "drink", Available: true},
	}))
	base := cart.NewInMemoryRepository()
	cartRepo := &interleavingCartRepo{InMemoryRepository: base}
	carts := cart.NewService(base, catalog)
	orders := NewService(NewInMemoryRepository(base), cartRepo, catalog)

	if _, err := carts.AddItem(7, 1, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	cartRepo.afterList = func() {
		if _, err := carts.AddItem(7, 2, 1); err != nil {
			t.Fatalf("mid-checkout add: %v", err)
		}
	}

	view, err := orders.Checkout(7)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// the order holds exactly the snapshot
	if len(view.Items) != 1 || view.Items[0].ProductID != 1 {
		t.Fatalf("expected only the snapshotted line in the order, got %+v", view.Items)
	}
	if !view.Total.Equal(decimal.RequireFromString("70.00")) {
		t.Fatalf("expected total 70.00, got %s", view.Total)
	}

	// the line added mid-checkout survives the clear
	cartView, err := carts.GetCart(7)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cartView.Items) != 1 || cartView.Items[0].ProductID != 2 {
		t.Fatalf("expected the mid-checkout line to remain in the cart, got %+v", cartView.Items)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)

	if _, err := f.carts.GetCart(7); err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if _, err := f.orders.Checkout(7); err != ErrEmptyCart {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	all, err := f.orders.ListAll()
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no orders created, got %d", len(all))
	}
}

func TestCheckout_PriceLockedAtAddTimeNotCheckoutTime(t *testing.T) {
	catalogRepo := product.NewInMemoryRepository([]product.Product{
		{ID: 1, Name: "Classic Burger", Price: decimal.RequireFromString("35.00"), Category: "burger", Available: true},
	})
	catalog := product.NewService(catalogRepo)
	cartRepo := cart.NewInMemoryRepository()
	carts := cart.NewService(cartRepo, catalog)
	orders := NewService(NewInMemoryRepository(cartRepo), cartRepo, catalog)

	if _, err := carts.AddItem(7, 1, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	// reprice before checkout; the order must keep the add-time price
	if _, err := catalogRepo.Update(1, product.Product{
		Name: "Classic Burger", Price: decimal.RequireFromString("99.00"), Category: "burger", Available: true,
	}); err != nil {
		t.Fatalf("reprice: %v", err)
	}

	view, err := orders.Checkout(7)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !view.Total.Equal(decimal.RequireFromString("35.00")) {
		t.Fatalf("expected add-time price 35.00, got %s", view.Total)
	}
}

func TestGetByID_OwnershipBoundary(t *testing.T) {
	f := newFixture(t)

	if _, err := f.carts.AddItem(7, 1, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	created, err := f.orders.Checkout(7)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// owner reads fine
	if _, err := f.orders.GetByID(created.ID, 7, false); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	// another customer is forbidden, distinguishable from not-found
	if _, err := f.orders.GetByID(created.ID, 8, false); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	// an admin can read anything
	if _, err := f.orders.GetByID(created.ID, 8, true); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	// a missing id stays not-found
	if _, err := f.orders.GetByID(999, 7, true); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByUser_NewestFirst(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := f.carts.AddItem(7, 1, 1); err != nil {
			t.Fatalf("seed cart: %v", err)
		}
		if _, err := f.orders.Checkout(7); err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
	}

	views, err := f.orders.ListByUser(7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(views))
	}
	for i := 1; i < len(views); i++ {
		if views[i-1].ID < views[i].ID {
			t.Fatalf("expected newest first, got ids %d then %d", views[i-1].ID, views[i].ID)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)

	if _, err := f.carts.AddItem(7, 1, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	created, err := f.orders.Checkout(7)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// lower case input parses onto the enum
	view, err := f.orders.UpdateStatus(created.ID, "confirmed")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if view.Status != StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", view.Status)
	}

	// unknown value is rejected and the stored status is untouched
	if _, err := f.orders.UpdateStatus(created.ID, "SHIPPED_TO_MARS"); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	view, err = f.orders.GetByID(created.ID, 7, false)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if view.Status != StatusConfirmed {
		t.Fatalf("expected status unchanged after rejected update, got %s", view.Status)
	}

	// transitions are not restricted: cancelled back to pending is legal
	if _, err := f.orders.UpdateStatus(created.ID, "CANCELLED"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.orders.UpdateStatus(created.ID, "PENDING"); err != nil {
		t.Fatalf("back to pending: %v", err)
	}

	if _, err := f.orders.UpdateStatus(999, "CONFIRMED"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing order, got %v", err)
	}
}
