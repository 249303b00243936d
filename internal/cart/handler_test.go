package cart

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"

	"github.com/moroburger/menu-backend/internal/product"
)

func makeAppWithCartHandler(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id, "role": c.Get("X-User-Role")}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

func newTestHandler() *Handler {
	catalog := product.NewService(product.NewInMemoryRepository([]product.Product{
		{ID: 1, Name: "Classic Burger", Price: decimal.RequireFromString("35.00"), Category: "burger", Available: true},
		{ID: 2, Name: "Sold Out Special", Price: decimal.RequireFromString("50.00"), Category: "burger", Available: false},
	}))
	return NewHandler(NewService(NewInMemoryRepository(), catalog))
}

func TestCartRoutes_Basic(t *testing.T) {
	app := makeAppWithCartHandler(newTestHandler())

	// unauthorized access should be blocked
	req := httptest.NewRequest("GET", "/api/v1/cart", nil)
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated GET, got %d", res.StatusCode)
	}

	// authorized GET lazily creates an empty cart
	req = httptest.NewRequest("GET", "/api/v1/cart", nil)
	req.Header.Set("X-User-ID", "42")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for authenticated GET, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"items":[]`) {
		t.Fatalf("expected empty items, got %s", string(b))
	}

	// add an item
	req = httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for add, got %d", res.StatusCode)
	}
	b, _ = io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"quantity":2`) || !strings.Contains(string(b), `"total":"70.00"`) {
		t.Fatalf("unexpected add response: %s", string(b))
	}

	// adding the same product again merges into one line
	req = httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	res, _ = app.Test(req)
	b, _ = io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"quantity":3`) {
		t.Fatalf("expected quantity 3 after second add, got %s", string(b))
	}
	if strings.Count(string(b), `"productId":1`) != 1 {
		t.Fatalf("expected a single line for the product, got %s", string(b))
	}

	// unavailable product is rejected
	req = httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"productId":2,"quantity":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 for unavailable product, got %d", res.StatusCode)
	}

	// clear the cart via DELETE
	req = httptest.NewRequest("DELETE", "/api/v1/cart", nil)
	req.Header.Set("X-User-ID", "42")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 for clear cart, got %d", res.StatusCode)
	}
	req = httptest.NewRequest("GET", "/api/v1/cart", nil)
	req.Header.Set("X-User-ID", "42")
	res, _ = app.Test(req)
	b, _ = io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"items":[]`) {
		t.Fatalf("expected empty cart after clear, got %s", string(b))
	}
}

func TestCartRoutes_UpdateAndRemoveItem(t *testing.T) {
	h := newTestHandler()
	app := makeAppWithCartHandler(h)

	view, err := h.service.AddItem(42, 1, 2)
	if err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	itemID := view.Items[0].ID

	// absolute update
	req := httptest.NewRequest("PUT", fmt.Sprintf("/api/v1/cart/items/%d", itemID), strings.NewReader(`{"quantity":5}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for update, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"quantity":5`) {
		t.Fatalf("expected quantity 5 after absolute update, got %s", string(b))
	}

	// another user's token cannot touch the item
	req = httptest.NewRequest("PUT", fmt.Sprintf("/api/v1/cart/items/%d", itemID), strings.NewReader(`{"quantity":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "43")
	if _, err := h.service.GetCart(43); err != nil {
		t.Fatalf("create second cart: %v", err)
	}
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for foreign item, got %d", res.StatusCode)
	}

	// remove
	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/cart/items/%d", itemID), nil)
	req.Header.Set("X-User-ID", "42")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 for remove, got %d", res.StatusCode)
	}

	// removing it again is a 404
	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/cart/items/%d", itemID), nil)
	req.Header.Set("X-User-ID", "42")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for missing item, got %d", res.StatusCode)
	}
}
