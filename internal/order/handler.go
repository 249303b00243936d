package order

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/moroburger/menu-backend/internal/user"
)

// Handler delegates order operations to the order service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/orders/checkout", h.checkout)
	app.Get("/api/v1/orders/mine", h.myOrders)
	// admin listing before :id so the route params don't collide
	app.Get("/api/v1/orders", h.allOrders)
	app.Get("/api/v1/orders/:id", h.getOrder)
	app.Put("/api/v1/orders/:id/status", h.updateStatus)
}

type statusRequest struct {
	NewStatus string `json:"newStatus"`
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	view, err := h.service.Checkout(userID)
	if err != nil {
		return h.mapError(c, err)
	}

	logrus.WithFields(logrus.Fields{"user_id": userID, "order_id": view.ID}).Info("order created")
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *Handler) myOrders(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	views, err := h.service.ListByUser(userID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(views)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order id"})
	}

	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	view, err := h.service.GetByID(orderID, userID, user.IsAdminFromCtx(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(view)
}

func (h *Handler) allOrders(c *fiber.Ctx) error {
	if !user.IsAdminFromCtx(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "admin only"})
	}

	views, err := h.service.ListAll()
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(views)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	if !user.IsAdminFromCtx(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "admin only"})
	}

	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order id"})
	}

	payload := new(statusRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	view, err := h.service.UpdateStatus(orderID, payload.NewStatus)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(view)
}

func (h *Handler) mapError(c *fiber.Ctx, err error) error {
	switch err {
	case ErrNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
	case ErrForbidden:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "not your order"})
	case ErrEmptyCart:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "cart is empty"})
	case ErrInvalidStatus:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order status"})
	default:
		logrus.WithError(err).Error("order operation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
