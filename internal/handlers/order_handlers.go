package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"glowdesk/internal/common"
	"glowdesk/internal/services"

	"github.com/labstack/echo/v4"
)

// OrderHandlers handles the owner-facing order ledger endpoints
type OrderHandlers struct {
	orderService services.OrderService
}

// NewOrderHandlers creates a new order handlers instance
func NewOrderHandlers(orderService services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		orderService: orderService,
	}
}

// CreateOrder handles POST /orders
func (h *OrderHandlers) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, ok := common.GetBusinessIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Business not found in token")
	}

	var req services.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	order, err := h.orderService.CreateOrder(ctx, businessID, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Order created successfully",
		"order":   order,
	})
}

// ListOrders handles GET /orders
func (h *OrderHandlers) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, ok := common.GetBusinessIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Business not found in token")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	orders, err := h.orderService.ListOrders(ctx, businessID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list orders")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandlers) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, ok := common.GetBusinessIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Business not found in token")
	}

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", "must be a valid UUID")
	}

	order, err := h.orderService.GetOrder(ctx, businessID, orderID)
	if err != nil {
		return common.SendNotFoundError(c, "order")
	}

	return c.JSON(http.StatusOK, order)
}

// UploadPaymentProof handles POST /orders/:id/payment-proof. The proof is a
// multipart image upload; the handler streams it to object storage and the
// presigned URL lands on the order row.
func (h *OrderHandlers) UploadPaymentProof(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, ok := common.GetBusinessIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Business not found in token")
	}

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", "must be a valid UUID")
	}

	fileHeader, err := c.FormFile("payment_proof")
	if err != nil {
		return common.SendValidationError(c, "payment_proof", "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return common.SendServerError(c, "Failed to read uploaded file")
	}
	defer file.Close()

	order, err := h.orderService.AttachPaymentProof(ctx, businessID, orderID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file, fileHeader.Size)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProofTooLarge):
			return common.SendValidationError(c, "payment_proof", "file exceeds the 5 MB limit")
		case errors.Is(err, services.ErrProofNotImage):
			return common.SendValidationError(c, "payment_proof", "file must be an image")
		case errors.Is(err, services.ErrOrderFinalized):
			return common.SendConflictError(c, "Order has already been completed or rejected")
		default:
			return common.SendServerError(c, "Failed to store payment proof")
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Payment proof uploaded",
		"order":   order,
	})
}
