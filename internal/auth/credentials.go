package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/events"
	"github.com/example/licenseportal/internal/metrics"
	"github.com/example/licenseportal/internal/models"
	"github.com/example/licenseportal/internal/services"
	"github.com/example/licenseportal/internal/store"
	"github.com/example/licenseportal/internal/utils"
)

const accountsSource = "accounts"

// LoginInput is a sign-in attempt. RoleHint names the login form that was used.
type LoginInput struct {
	Email    string
	Password string
	RoleHint string
	IP       string
}

// LoginResult is a resolved, password-checked identity.
type LoginResult struct {
	Account *models.Account
	Token   string
	// Source is the collection the account was found in.
	Source string
}

// WantsAdmin reports whether a role hint selects the administrator login.
func WantsAdmin(hint string) bool {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "admin", "administrator":
		return true
	}
	return false
}

// Login resolves the credentials to an account. Unknown email, missing password
// and wrong password are indistinguishable to the caller. The login notice is
// queued and can never fail the login.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	wantAdmin := WantsAdmin(in.RoleHint)

	acc, source, err := s.resolve(ctx, email, wantAdmin)
	if err != nil {
		recordLogin(err)
		return nil, err
	}

	if !acc.HasPassword() || !utils.CheckPassword(acc.Password, in.Password) {
		s.log.Debug("login password rejected", zap.String("email", email), zap.String("source", source))
		err := apperr.InvalidCredentials()
		recordLogin(err)
		return nil, err
	}

	if err := roleGuard(acc, wantAdmin); err != nil {
		recordLogin(err)
		return nil, err
	}

	token, err := utils.GenerateToken(s.jwtSecret, acc.ID, string(acc.Role), s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	recordLogin(nil)

	s.notifyLogin(acc, source, in.IP)
	return &LoginResult{Account: acc, Token: token, Source: source}, nil
}

// resolve finds the candidate account. The administrator form searches the legacy
// admin collections first and then falls back to the accounts store.
func (s *Service) resolve(ctx context.Context, email string, wantAdmin bool) (*models.Account, string, error) {
	if wantAdmin {
		rec, err := s.store.FindLegacyAdmin(ctx, email)
		switch {
		case err == nil:
			if !rec.Account.HasPassword() {
				s.log.Error("legacy admin record has no password", zap.String("collection", rec.Collection), zap.String("id", rec.Account.ID))
				return nil, "", apperr.Configuration("administrator record is missing a password", nil)
			}
			return rec.Account, rec.Collection, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, "", fmt.Errorf("find legacy admin: %w", err)
		}
		s.log.Debug("no legacy admin entry, falling back to accounts", zap.String("email", email))
	}

	acc, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Debug("login email not found", zap.String("email", email), zap.Bool("admin", wantAdmin))
		return nil, "", apperr.InvalidCredentials()
	}
	if err != nil {
		return nil, "", fmt.Errorf("find account: %w", err)
	}
	return acc, accountsSource, nil
}

func roleGuard(acc *models.Account, wantAdmin bool) error {
	switch {
	case wantAdmin && !acc.IsAdmin():
		return apperr.RoleMismatch("this account is not an administrator, use the regular login")
	case !wantAdmin && acc.IsAdmin():
		return apperr.RoleMismatch("administrator accounts must use the administrator login")
	}
	return nil
}

func (s *Service) notifyLogin(acc *models.Account, source, ip string) {
	at := s.now()
	snapshot := *acc

	s.background("login-notice", func(ctx context.Context) error {
		return s.codes.SendLoginNotice(ctx, &snapshot, ip, at)
	})
	if acc.IsAdmin() && s.alerts != nil && s.alerts.IsConfigured() {
		s.background("admin-login-alert", func(ctx context.Context) error {
			return s.alerts.NotifyAdminLogin(ctx, services.AdminLoginNotification{
				Name:   snapshot.Name,
				Email:  snapshot.Email,
				Source: source,
				IP:     ip,
				At:     at,
			})
		})
	}
	s.publish(events.AccountLogin, acc)
}

func recordLogin(err error) {
	result := "ok"
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindInvalidCredentials:
			result = "invalid_credentials"
		case apperr.KindRoleMismatch:
			result = "role_mismatch"
		default:
			result = "error"
		}
	}
	metrics.Logins.WithLabelValues(result).Inc()
}
