package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/moroburger/menu-backend/internal/metrics"
	"github.com/moroburger/menu-backend/internal/product"
)

// Catalog is the read-only product lookup the cart depends on.
type Catalog interface {
	GetByID(id int) (product.Product, error)
	ListByIDs(ids []int) ([]product.Product, error)
}

// Service enforces the cart business rules on top of the repository:
// availability on add, price frozen at first add, unique line per product,
// no line with a non-positive quantity, and ownership checks on every
// item mutation.
type Service struct {
	repo    Repository
	catalog Catalog
}

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// AddItem treats qty as a delta merged into any existing line for the
// product. A negative delta decrements; a resulting quantity of zero or
// below removes the line. Note the asymmetry with UpdateItemQuantity,
// which takes an absolute value.
func (s *Service) AddItem(userID, productID, qty int) (View, error) {
	crt, err := s.repo.GetOrCreate(userID, nowString())
	if err != nil {
		return View{}, err
	}

	// propagated unchanged: a NotFound from the catalog stays a NotFound,
	// and a transient lookup failure must not be mistaken for one
	p, err := s.catalog.GetByID(productID)
	if err != nil {
		return View{}, err
	}
	if !p.Available {
		return View{}, ErrProductUnavailable
	}

	// p.Price only applies when the line is created; an existing line
	// keeps the unit price captured at its first add.
	if err := s.repo.AddItem(crt.ID, productID, qty, p.Price); err != nil {
		return View{}, err
	}
	if err := s.repo.Touch(crt.ID, nowString()); err != nil {
		return View{}, err
	}

	metrics.CartMutations.WithLabelValues("add").Inc()
	return s.buildView(crt.UserID)
}

// UpdateItemQuantity sets the line's quantity to qty (absolute, not a
// delta). Zero or below removes the line.
func (s *Service) UpdateItemQuantity(userID, itemID, qty int) (View, error) {
	crt, item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return View{}, err
	}

	if qty <= 0 {
		if err := s.repo.DeleteItem(item.ID); err != nil {
			return View{}, err
		}
	} else {
		if err := s.repo.SetItemQuantity(item.ID, qty); err != nil {
			return View{}, err
		}
	}
	if err := s.repo.Touch(crt.ID, nowString()); err != nil {
		return View{}, err
	}

	metrics.CartMutations.WithLabelValues("update").Inc()
	return s.buildView(userID)
}

func (s *Service) RemoveItem(userID, itemID int) (View, error) {
	crt, item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return View{}, err
	}

	if err := s.repo.DeleteItem(item.ID); err != nil {
		return View{}, err
	}
	if err := s.repo.Touch(crt.ID, nowString()); err != nil {
		return View{}, err
	}

	metrics.CartMutations.WithLabelValues("remove").Inc()
	return s.buildView(userID)
}

func (s *Service) Clear(userID int) error {
	crt, err := s.repo.GetOrCreate(userID, nowString())
	if err != nil {
		return err
	}

	if err := s.repo.ClearItems(crt.ID); err != nil {
		return err
	}
	if err := s.repo.Touch(crt.ID, nowString()); err != nil {
		return err
	}

	metrics.CartMutations.WithLabelValues("clear").Inc()
	return nil
}

func (s *Service) GetCart(userID int) (View, error) {
	if _, err := s.repo.GetOrCreate(userID, nowString()); err != nil {
		return View{}, err
	}
	return s.buildView(userID)
}

// ownedItem loads the item and verifies it belongs to the requesting
// user's cart. A mismatch is ErrForbidden, never a silent cross-cart edit.
func (s *Service) ownedItem(userID, itemID int) (Cart, Item, error) {
	crt, err := s.repo.GetByUser(userID)
	if err != nil {
		return Cart{}, Item{}, err
	}

	item, err := s.repo.GetItem(itemID)
	if err != nil {
		return Cart{}, Item{}, err
	}

	if item.CartID != crt.ID {
		return Cart{}, Item{}, ErrForbidden
	}
	return crt, item, nil
}

// buildView recomputes every subtotal and the total from the current lines.
// Nothing here is read from a stored aggregate.
func (s *Service) buildView(userID int) (View, error) {
	crt, err := s.repo.GetByUser(userID)
	if err != nil {
		return View{}, err
	}

	items, err := s.repo.ListItems(crt.ID)
	if err != nil {
		return View{}, err
	}

	view := View{
		ID:        crt.ID,
		UserID:    crt.UserID,
		Items:     make([]ItemView, 0, len(items)),
		Total:     decimal.Zero,
		UpdatedAt: crt.UpdatedAt,
	}

	names := s.productDetails(items)
	for _, it := range items {
		subtotal := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		iv := ItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  subtotal,
		}
		if p, ok := names[it.ProductID]; ok {
			iv.ProductName = p.Name
			iv.Image = p.Image
		}
		view.Items = append(view.Items, iv)
		view.Total = view.Total.Add(subtotal)
	}

	return view, nil
}

func (s *Service) productDetails(items []Item) map[int]product.Product {
	out := map[int]product.Product{}
	if len(items) == 0 {
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

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}
