package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/models"
	"github.com/example/licenseportal/internal/store"
	"github.com/example/licenseportal/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	store store.AccountStore
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(s store.AccountStore) *AdminHandler {
	return &AdminHandler{store: s}
}

// ListAccounts returns accounts with pagination, search and an optional role filter.
func (h *AdminHandler) ListAccounts(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	filter := store.ListFilter{
		Search: pagination.Search,
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	}
	if raw := c.Query("role"); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			return apperr.Validation("role is invalid")
		}
		filter.Role = role
	}

	accounts, total, err := h.store.List(c.UserContext(), filter)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    accounts,
		"pagination": fiber.Map{
			"page":  pagination.Page,
			"limit": pagination.Limit,
			"total": total,
		},
	})
}

// Health reports that the process is serving requests.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "status": "ok"})
}
