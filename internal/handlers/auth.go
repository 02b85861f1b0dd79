package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/licenseportal/internal/auth"
	"github.com/example/licenseportal/internal/middleware"
	"github.com/example/licenseportal/internal/models"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	svc *auth.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// registerRequest accepts both historical spellings of each identity field.
type registerRequest struct {
	Name         string `json:"name"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	EmailAddress string `json:"emailAddress"`
	Username     string `json:"username"`
	UserName     string `json:"userName"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	Type         string `json:"type"`
	Phone        string `json:"phone"`
	NationalID   string `json:"nationalId"`
	Address      string `json:"address"`

	ExaminerDetails models.RoleDetails `json:"examinerDetails"`
	OfficerDetails  models.RoleDetails `json:"trafficOfficerDetails"`
}

// Register begins signup. The account is unusable for verification-gated flows
// until the emailed code is confirmed.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := h.svc.Register(c.UserContext(), auth.RegisterInput{
		Name:            firstNonEmpty(req.Name, req.FullName),
		Email:           firstNonEmpty(req.Email, req.EmailAddress),
		Username:        firstNonEmpty(req.Username, req.UserName),
		Password:        req.Password,
		Role:            firstNonEmpty(req.Role, req.Type),
		Phone:           req.Phone,
		NationalID:      req.NationalID,
		Address:         req.Address,
		ExaminerDetails: req.ExaminerDetails,
		OfficerDetails:  req.OfficerDetails,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":        true,
		"message":        "verification code sent to your email",
		"requiresOTP":    true,
		"email":          res.Account.Email,
		"emailSimulated": res.Delivery.Simulated,
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	Code  string `json:"code"`
}

// VerifyOTP confirms a signup code.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	acc, err := h.svc.Verify(c.UserContext(), req.Email, firstNonEmpty(req.OTP, req.Code))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "email verified",
		"verified": true,
		"user":     acc,
	})
}

type emailRequest struct {
	Email string `json:"email"`
}

// ResendOTP issues a fresh signup code.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	delivery, err := h.svc.Resend(c.UserContext(), req.Email)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "a new verification code has been sent",
		"emailSimulated": delivery.Simulated,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	UserType string `json:"userType"`
}

// Login authenticates an account and returns a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := h.svc.Login(c.UserContext(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		RoleHint: firstNonEmpty(req.Role, req.UserType),
		IP:       c.IP(),
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   res.Token,
		"user":    res.Account,
	})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	id, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	acc, err := h.svc.Account(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    acc,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
