package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/events"
	"github.com/example/licenseportal/internal/metrics"
	"github.com/example/licenseportal/internal/models"
	"github.com/example/licenseportal/internal/otp"
	"github.com/example/licenseportal/internal/store"
	"github.com/example/licenseportal/internal/throttle"
	"github.com/example/licenseportal/internal/utils"
)

// RegisterInput is a signup submission.
type RegisterInput struct {
	Name       string
	Email      string
	Username   string
	Password   string
	Role       string
	Phone      string
	NationalID string
	Address    string

	ExaminerDetails models.RoleDetails
	OfficerDetails  models.RoleDetails
}

// RegisterResult is the outcome of a signup submission. The account always still
// needs its code confirmed.
type RegisterResult struct {
	Account  *models.Account
	Created  bool
	Delivery otp.Delivery
}

// Register starts or restarts signup for an email address. An unverified account
// with the same email is updated in place and gets a new code; a verified one is
// a Duplicate.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := models.RoleApplicant
	if strings.TrimSpace(in.Role) != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			return nil, apperr.Validation("role is invalid")
		}
		if r.IsAdmin() {
			return nil, apperr.Validation("administrator accounts cannot be self-registered")
		}
		role = r
	}

	acc, err := s.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		acc = &models.Account{}
	case err != nil:
		return nil, fmt.Errorf("find account: %w", err)
	case acc.IsEmailVerified:
		return nil, apperr.Duplicate("email")
	}
	created := acc.ID == ""

	if err := s.limiter.Allow(ctx, throttle.Key(string(otp.PurposeVerification), email)); err != nil {
		return nil, err
	}

	code, err := otp.Issue(s.now())
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc.Name = name
	acc.Email = email
	acc.Username = strings.TrimSpace(in.Username)
	acc.Password = hash
	acc.Role = role
	acc.Phone = strings.TrimSpace(in.Phone)
	acc.NationalID = strings.TrimSpace(in.NationalID)
	acc.Address = strings.TrimSpace(in.Address)
	acc.ExaminerDetails = in.ExaminerDetails
	acc.OfficerDetails = in.OfficerDetails
	acc.IsEmailVerified = false
	acc.Verification = code

	if err := s.save(ctx, acc); err != nil {
		return nil, err
	}
	metrics.OTPIssued.WithLabelValues(string(otp.PurposeVerification)).Inc()
	if created {
		s.publish(events.AccountRegistered, acc)
	}

	delivery, err := s.codes.SendCode(ctx, otp.PurposeVerification, acc.Email, acc.Name, code)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Account: acc, Created: created, Delivery: delivery}, nil
}

// Verify confirms a signup code and marks the email verified.
func (s *Service) Verify(ctx context.Context, email, code string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return nil, apperr.Validation("email and code are required")
	}

	acc, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acc.IsEmailVerified {
		return nil, apperr.AlreadyVerified()
	}

	if err := otp.Verify(code, acc.Verification, s.now()); err != nil {
		recordVerification(otp.PurposeVerification, err)
		return nil, err
	}
	recordVerification(otp.PurposeVerification, nil)

	acc.IsEmailVerified = true
	acc.Verification = nil
	if err := s.save(ctx, acc); err != nil {
		return nil, err
	}
	s.publish(events.AccountVerified, acc)
	return acc, nil
}

// Resend issues a new signup code, replacing any outstanding one.
func (s *Service) Resend(ctx context.Context, email string) (otp.Delivery, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return otp.Delivery{}, apperr.Validation("email is required")
	}

	acc, err := s.findByEmail(ctx, email)
	if err != nil {
		return otp.Delivery{}, err
	}
	if acc.IsEmailVerified {
		return otp.Delivery{}, apperr.AlreadyVerified()
	}
	if err := s.limiter.Allow(ctx, throttle.Key(string(otp.PurposeVerification), email)); err != nil {
		return otp.Delivery{}, err
	}

	code, err := otp.Issue(s.now())
	if err != nil {
		return otp.Delivery{}, err
	}
	acc.Verification = code
	if err := s.save(ctx, acc); err != nil {
		return otp.Delivery{}, err
	}
	metrics.OTPIssued.WithLabelValues(string(otp.PurposeVerification)).Inc()

	return s.codes.SendCode(ctx, otp.PurposeVerification, acc.Email, acc.Name, code)
}

func recordVerification(purpose otp.Purpose, err error) {
	result := "ok"
	if e, ok := apperr.As(err); ok {
		result = string(e.Reason)
	} else if err != nil {
		result = "error"
	}
	metrics.OTPVerifications.WithLabelValues(string(purpose), result).Inc()
}
