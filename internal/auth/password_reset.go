package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/events"
	"github.com/example/licenseportal/internal/metrics"
	"github.com/example/licenseportal/internal/models"
	"github.com/example/licenseportal/internal/otp"
	"github.com/example/licenseportal/internal/throttle"
	"github.com/example/licenseportal/internal/utils"
)

// ResetInput applies a new password with a reset code.
type ResetInput struct {
	Email           string
	Code            string
	Password        string
	ConfirmPassword string
}

// RequestReset issues a password reset code. The account must be verified and
// have a password.
func (s *Service) RequestReset(ctx context.Context, email string) (otp.Delivery, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return otp.Delivery{}, apperr.Validation("email is required")
	}

	acc, err := s.findByEmail(ctx, email)
	if err != nil {
		return otp.Delivery{}, err
	}
	if !acc.IsEmailVerified {
		return otp.Delivery{}, apperr.ProfileIncomplete("email address is not verified, complete registration first")
	}
	if !acc.HasPassword() {
		return otp.Delivery{}, apperr.ProfileIncomplete("account has no password set, complete registration first")
	}
	if err := s.limiter.Allow(ctx, throttle.Key(string(otp.PurposePasswordReset), email)); err != nil {
		return otp.Delivery{}, err
	}

	code, err := otp.Issue(s.now())
	if err != nil {
		return otp.Delivery{}, err
	}
	acc.PasswordReset = code
	if err := s.save(ctx, acc); err != nil {
		return otp.Delivery{}, err
	}
	metrics.OTPIssued.WithLabelValues(string(otp.PurposePasswordReset)).Inc()

	return s.codes.SendCode(ctx, otp.PurposePasswordReset, acc.Email, acc.Name, code)
}

// ConfirmReset checks a reset code without consuming it.
func (s *Service) ConfirmReset(ctx context.Context, email, code string) error {
	email = models.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return apperr.Validation("email and code are required")
	}

	acc, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	err = otp.Verify(code, acc.PasswordReset, s.now())
	recordVerification(otp.PurposePasswordReset, err)
	return err
}

// ApplyReset overwrites the password and clears the reset code. Nothing is
// written unless every check passes.
func (s *Service) ApplyReset(ctx context.Context, in ResetInput) error {
	email := models.NormalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.Code) == "" {
		return apperr.Validation("email and code are required")
	}
	if in.Password != in.ConfirmPassword {
		return apperr.Validation("passwords do not match")
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}

	acc, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := otp.Verify(in.Code, acc.PasswordReset, s.now()); err != nil {
		recordVerification(otp.PurposePasswordReset, err)
		return err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	acc.Password = hash
	acc.PasswordReset = nil
	if err := s.save(ctx, acc); err != nil {
		return err
	}
	s.publish(events.PasswordReset, acc)
	return nil
}
