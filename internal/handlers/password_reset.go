package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/licenseportal/internal/auth"
)

// PasswordResetHandler manages forgot-password endpoints.
type PasswordResetHandler struct {
	svc *auth.Service
}

// NewPasswordResetHandler constructs a PasswordResetHandler.
func NewPasswordResetHandler(svc *auth.Service) *PasswordResetHandler {
	return &PasswordResetHandler{svc: svc}
}

// ForgotPassword emails a reset code to a verified account.
func (h *PasswordResetHandler) ForgotPassword(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	delivery, err := h.svc.RequestReset(c.UserContext(), req.Email)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "password reset code sent to your email",
		"emailSimulated": delivery.Simulated,
	})
}

// VerifyResetOTP checks a reset code without consuming it.
func (h *PasswordResetHandler) VerifyResetOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.ConfirmReset(c.UserContext(), req.Email, firstNonEmpty(req.OTP, req.Code)); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "code accepted",
	})
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	Code            string `json:"code"`
	NewPassword     string `json:"newPassword"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPassword applies a new password.
func (h *PasswordResetHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := h.svc.ApplyReset(c.UserContext(), auth.ResetInput{
		Email:           req.Email,
		Code:            firstNonEmpty(req.OTP, req.Code),
		Password:        firstNonEmpty(req.NewPassword, req.Password),
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "password has been reset",
	})
}
