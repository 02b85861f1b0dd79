// Package auth implements the account identity flows: registration with email
// verification, credential resolution at login, and password reset.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/events"
	"github.com/example/licenseportal/internal/models"
	"github.com/example/licenseportal/internal/notify"
	"github.com/example/licenseportal/internal/otp"
	"github.com/example/licenseportal/internal/services"
	"github.com/example/licenseportal/internal/store"
	"github.com/example/licenseportal/internal/throttle"
)

// MinPasswordLength is the shortest password accepted at registration and reset.
const MinPasswordLength = 6

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// CodeSender delivers code emails and login notices.
type CodeSender interface {
	SendCode(ctx context.Context, purpose otp.Purpose, to, name string, code *models.OneTimeCode) (otp.Delivery, error)
	SendLoginNotice(ctx context.Context, acc *models.Account, ip string, at time.Time) error
}

// Submitter runs side effects in the background.
type Submitter interface {
	Submit(name string, job notify.Job) bool
}

// AdminAlerter raises an out-of-band alert when an administrator signs in.
type AdminAlerter interface {
	IsConfigured() bool
	NotifyAdminLogin(ctx context.Context, n services.AdminLoginNotification) error
}

// Options holds the collaborators of a Service.
type Options struct {
	Store     store.AccountStore
	Codes     CodeSender
	Limiter   throttle.Limiter
	Queue     Submitter
	Events    events.Publisher
	Alerts    AdminAlerter
	JWTSecret string
	TokenTTL  time.Duration
	Log       *zap.Logger
}

// Service runs the registration, login and password reset flows.
type Service struct {
	store     store.AccountStore
	codes     CodeSender
	limiter   throttle.Limiter
	queue     Submitter
	events    events.Publisher
	alerts    AdminAlerter
	jwtSecret string
	tokenTTL  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewService(opts Options) *Service {
	s := &Service{
		store:     opts.Store,
		codes:     opts.Codes,
		limiter:   opts.Limiter,
		queue:     opts.Queue,
		events:    opts.Events,
		alerts:    opts.Alerts,
		jwtSecret: opts.JWTSecret,
		tokenTTL:  opts.TokenTTL,
		log:       opts.Log,
		now:       time.Now,
	}
	if s.limiter == nil {
		s.limiter = throttle.Noop{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Account returns the account with the given id.
func (s *Service) Account(ctx context.Context, id string) (*models.Account, error) {
	acc, err := s.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("")
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}

// findByEmail maps a store miss onto NotFound.
func (s *Service) findByEmail(ctx context.Context, email string) (*models.Account, error) {
	acc, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("")
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}

func (s *Service) save(ctx context.Context, acc *models.Account) error {
	if err := s.store.Save(ctx, acc); err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicate {
			return err
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// background hands a job to the queue. Without a queue the job is skipped.
func (s *Service) background(name string, job notify.Job) {
	if s.queue == nil {
		return
	}
	s.queue.Submit(name, job)
}

func (s *Service) publish(t events.Type, acc *models.Account) {
	ev := events.Event{
		Type:      t,
		AccountID: acc.ID,
		Email:     acc.Email,
		Role:      string(acc.Role),
		At:        s.now().UTC(),
	}
	s.background(string(t), func(ctx context.Context) error {
		return s.events.Publish(ctx, ev)
	})
}

func normalizeEmail(raw string) (string, error) {
	email := models.NormalizeEmail(raw)
	if email == "" {
		return "", apperr.Validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, ".") {
		return "", apperr.Validation("email is invalid")
	}
	return email, nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperr.Validation("password is required")
	}
	if len([]rune(password)) < MinPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return apperr.Validation(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}
