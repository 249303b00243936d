package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/moroburger/menu-backend/internal/cart"
	"github.com/moroburger/menu-backend/internal/metrics"
	"github.com/moroburger/menu-backend/internal/product"
)

// Catalog is the read-only product lookup used to enrich views with
// display data. It is never consulted for prices.
type Catalog interface {
	ListByIDs(ids []int) ([]product.Product, error)
}

// Service orchestrates the cart-to-order transition and the administrative
// status lifecycle.
type Service struct {
	repo    Repository
	carts   cart.Repository
	catalog Catalog
}

func NewService(repo Repository, carts cart.Repository, catalog Catalog) *Service {
	return &Service{repo: repo, carts: carts, catalog: catalog}
}

// Checkout snapshots the user's cart into a new PENDING order and removes
// the snapshotted lines from the cart. Product id, quantity and unit price
// are copied verbatim from each cart line; a catalog price change since
// add time is deliberately not reflected. Persistence and the line removal
// are one atomic unit in the repository.
func (s *Service) Checkout(userID int) (View, error) {
	crt, err := s.carts.GetByUser(userID)
	if err != nil {
		return View{}, ErrEmptyCart
	}

	lines, err := s.carts.ListItems(crt.ID)
	if err != nil {
		return View{}, err
	}
	if len(lines) == 0 {
		return View{}, ErrEmptyCart
	}

	ord := Order{
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Items:     make([]Item, 0, len(lines)),
		Total:     decimal.Zero,
	}

	lineIDs := make([]int, 0, len(lines))
	for _, line := range lines {
		item := Item{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		ord.Total = ord.Total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		ord.Items = append(ord.Items, item)
		lineIDs = append(lineIDs, line.ID)
	}

	// only the lines just snapshotted are cleared; a concurrent add
	// between the read above and Finalize stays in the cart
	created, err := s.repo.Finalize(ord, lineIDs)
	if err != nil {
		return View{}, err
	}

	metrics.OrdersCreated.Inc()
	return s.buildView(created), nil
}

// GetByID enforces the ownership boundary: a non-admin caller may only
// read their own order. Forbidden is distinct from NotFound so the caller
// can tell the two apart.
func (s *Service) GetByID(orderID, requesterID int, isAdmin bool) (View, error) {
	ord, err := s.repo.GetByID(orderID)
	if err != nil {
		return View{}, err
	}
	if !isAdmin && ord.UserID != requesterID {
		return View{}, ErrForbidden
	}
	return s.buildView(ord), nil
}

func (s *Service) ListByUser(userID int) ([]View, error) {
	orders, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	return s.buildViews(orders), nil
}

func (s *Service) ListAll() ([]View, error) {
	orders, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	return s.buildViews(orders), nil
}

// UpdateStatus overwrites the status of an existing order. Transition
// legality is not restricted; only the enum membership and the order's
// existence are checked.
func (s *Service) UpdateStatus(orderID int, raw string) (View, error) {
	status, err := ParseStatus(raw)
	if err != nil {
		return View{}, err
	}

	ord, err := s.repo.UpdateStatus(orderID, status)
	if err != nil {
		return View{}, err
	}
	return s.buildView(ord), nil
}

func (s *Service) buildViews(orders []Order) []View {
	views := make([]View, 0, len(orders))
	for _, ord := range orders {
		views = append(views, s.buildView(ord))
	}
	return views
}

// buildView recomputes each item subtotal from quantity and unit price.
func (s *Service) buildView(ord Order) View {
	view := View{
		ID:        ord.ID,
		UserID:    ord.UserID,
		Status:    ord.Status,
		Total:     ord.Total,
		CreatedAt: ord.CreatedAt,
		Items:     make([]ItemView, 0, len(ord.Items)),
	}

	names := s.productDetails(ord.Items)
	for _, it := range ord.Items {
		iv := ItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		}
		if p, ok := names[it.ProductID]; ok {
			iv.ProductName = p.Name
			iv.Image = p.Image
		}
		view.Items = append(view.Items, iv)
	}
	return view
}

func (s *Service) productDetails(items []Item) map[int]product.Product {
	out := map[int]product.Product{}
	if s.catalog == nil || len(items) == 0 {
		return out
	}

	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	// display enrichment only; a lookup failure must not fail the read
	prods, err := s.catalog.ListByIDs(ids)
	if err != nil {
		return out
	}
	for _, p := range prods {
		out[p.ID] = p
	}
	return out
}
