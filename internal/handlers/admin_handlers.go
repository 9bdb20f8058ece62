package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"glowdesk/internal/common"
	"glowdesk/internal/models"
	"glowdesk/internal/repositories"
	"glowdesk/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// AdminHandlers handles the platform-operator endpoints: registration review,
// order confirmation and privileged account management.
type AdminHandlers struct {
	registrationService services.RegistrationService
	membershipService   services.MembershipService
	orderService        services.OrderService
	userRepo            repositories.UserRepository
}

// NewAdminHandlers creates a new admin handlers instance
func NewAdminHandlers(
	registrationService services.RegistrationService,
	membershipService services.MembershipService,
	orderService services.OrderService,
	userRepo repositories.UserRepository,
) *AdminHandlers {
	return &AdminHandlers{
		registrationService: registrationService,
		membershipService:   membershipService,
		orderService:        orderService,
		userRepo:            userRepo,
	}
}

// ListPendingRegistrations handles GET /admin/registrations
func (h *AdminHandlers) ListPendingRegistrations(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	requests, err := h.registrationService.ListPending(ctx, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list registration requests")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"count":    len(requests),
	})
}

// ApproveRegistration handles POST /admin/registrations/:requestId/approve
func (h *AdminHandlers) ApproveRegistration(c echo.Context) error {
	ctx := c.Request().Context()

	requestID, err := common.ValidateUUID(c.Param("requestId"), "requestId")
	if err != nil {
		return common.SendValidationError(c, "requestId", "must be a valid UUID")
	}

	business, err := h.registrationService.Approve(ctx, requestID)
	if err != nil {
		if errors.Is(err, services.ErrRequestAlreadyReviewed) {
			return common.SendConflictError(c, "Registration request has already been reviewed")
		}
		return common.SendServerError(c, "Failed to approve registration request")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Registration approved",
		"business": business,
	})
}

// RejectRegistration handles POST /admin/registrations/:requestId/reject
func (h *AdminHandlers) RejectRegistration(c echo.Context) error {
	ctx := c.Request().Context()

	requestID, err := common.ValidateUUID(c.Param("requestId"), "requestId")
	if err != nil {
		return common.SendValidationError(c, "requestId", "must be a valid UUID")
	}

	if err := h.registrationService.Reject(ctx, requestID); err != nil {
		if errors.Is(err, services.ErrRequestAlreadyReviewed) {
			return common.SendConflictError(c, "Registration request has already been reviewed")
		}
		return common.SendServerError(c, "Failed to reject registration request")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Registration rejected"})
}

// ListAwaitingOrders handles GET /admin/orders
func (h *AdminHandlers) ListAwaitingOrders(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	orders, err := h.orderService.ListAwaitingConfirmation(ctx, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list orders")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// CompleteOrder handles POST /admin/businesses/:businessId/orders/:orderId/complete.
// Confirmation and membership activation are one transaction.
func (h *AdminHandlers) CompleteOrder(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := common.ValidateUUID(c.Param("businessId"), "businessId")
	if err != nil {
		return common.SendValidationError(c, "businessId", "must be a valid UUID")
	}
	orderID, err := common.ValidateUUID(c.Param("orderId"), "orderId")
	if err != nil {
		return common.SendValidationError(c, "orderId", "must be a valid UUID")
	}

	business, err := h.membershipService.Activate(ctx, businessID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderRejected):
			return common.SendConflictError(c, "Order was rejected and cannot be activated")
		case errors.Is(err, services.ErrOrderNotTransitionable):
			return common.SendConflictError(c, "Order is not in a confirmable state")
		default:
			return common.SendServerError(c, "Failed to complete order")
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Order completed and membership activated",
		"business": business,
	})
}

// RejectOrderRequest carries the optional reviewer notes for a rejection
type RejectOrderRequest struct {
	Notes *string `json:"notes"`
}

// RejectOrder handles POST /admin/businesses/:businessId/orders/:orderId/reject
func (h *AdminHandlers) RejectOrder(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, err := common.ValidateUUID(c.Param("businessId"), "businessId")
	if err != nil {
		return common.SendValidationError(c, "businessId", "must be a valid UUID")
	}
	orderID, err := common.ValidateUUID(c.Param("orderId"), "orderId")
	if err != nil {
		return common.SendValidationError(c, "orderId", "must be a valid UUID")
	}

	var req RejectOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	order, err := h.orderService.RejectOrder(ctx, businessID, orderID, req.Notes)
	if err != nil {
		if errors.Is(err, services.ErrOrderFinalized) {
			return common.SendConflictError(c, "Order has already been completed or rejected")
		}
		return common.SendServerError(c, "Failed to reject order")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Order rejected",
		"order":   order,
	})
}

// CreateBusinessRequest is the direct business creation payload
type CreateBusinessRequest struct {
	Name       string `json:"name" validate:"required"`
	OwnerEmail string `json:"owner_email" validate:"required,email"`
}

// CreateBusiness handles POST /admin/businesses. The trial starts
// immediately, same as the registration approval path.
func (h *AdminHandlers) CreateBusiness(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateBusinessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	business, err := h.registrationService.CreateBusiness(ctx, req.Name, req.OwnerEmail)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":  "Business created",
		"business": business,
	})
}

// CreateAdminUserRequest is the privileged account creation payload
type CreateAdminUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// CreateAdminUser handles POST /admin/users. Validation runs before any side
// effect: a rejected payload must leave no partial account behind.
func (h *AdminHandlers) CreateAdminUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateAdminUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := common.ValidateEmail(req.Email, "email"); err != nil {
		return common.SendValidationError(c, "email", "must be a valid email address")
	}
	if len(req.Password) < 8 {
		return common.SendValidationError(c, "password", "must be at least 8 characters")
	}
	if req.FirstName == "" || req.LastName == "" {
		return common.SendValidationError(c, "name", "first and last name are required")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return common.SendServerError(c, "Failed to hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleAdmin,
		Status:       "active",
	}
	if err := h.userRepo.Create(ctx, user); err != nil {
		return common.SendConflictError(c, "Failed to create user")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Admin user created",
		"user":    user,
	})
}
