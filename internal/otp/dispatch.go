package otp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/metrics"
	"github.com/example/licenseportal/internal/models"
	"github.com/example/licenseportal/internal/services"
)

// Delivery reports how a code email went out.
type Delivery struct {
	// Simulated is true when no mail transport is configured and the message was
	// only logged.
	Simulated bool
}

// Dispatcher renders code and notice emails and hands them to a Mailer.
type Dispatcher struct {
	mailer      services.Mailer
	simulated   bool
	appName     string
	frontendURL string
	log         *zap.Logger
}

// NewDispatcher wires a Dispatcher. simulated marks mailer as a stand-in so
// callers can tell the user no real email was sent.
func NewDispatcher(mailer services.Mailer, simulated bool, appName, frontendURL string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:      mailer,
		simulated:   simulated,
		appName:     appName,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

func (d *Dispatcher) mode() string {
	if d.simulated {
		return "simulated"
	}
	return "smtp"
}

// SendCode emails a freshly issued code. A transport failure is returned as a
// Delivery error; the issued code stays valid.
func (d *Dispatcher) SendCode(ctx context.Context, purpose Purpose, to, name string, code *models.OneTimeCode) (Delivery, error) {
	data := codeEmail{
		AppName:   d.appName,
		Name:      name,
		Code:      code.Value,
		Minutes:   int(CodeTTL / time.Minute),
		ExpiresAt: formatTime(code.ExpiresAt),
	}
	var subject string
	switch purpose {
	case PurposePasswordReset:
		subject = fmt.Sprintf("%s password reset code", d.appName)
		data.Heading = "Reset your password"
		data.Intro = "Use the code below to reset your password."
		data.LinkURL = d.link("/reset-password", to)
		data.LinkLabel = "Open the password reset page"
	default:
		subject = fmt.Sprintf("%s email verification code", d.appName)
		data.Heading = "Verify your email address"
		data.Intro = "Use the code below to finish creating your account."
		data.LinkURL = d.link("/verify-otp", to)
		data.LinkLabel = "Open the verification page"
	}

	html, text, err := render(codeHTMLTmpl, codeTextTmpl, data)
	if err != nil {
		return Delivery{}, fmt.Errorf("render %s email: %w", purpose, err)
	}

	if err := d.send(ctx, services.Message{To: to, Subject: subject, HTML: html, Text: text}); err != nil {
		d.log.Error("code email failed", zap.String("purpose", string(purpose)), zap.String("to", to), zap.Error(err))
		return Delivery{}, apperr.Delivery(err)
	}
	if d.simulated {
		d.log.Info("code email simulated", zap.String("purpose", string(purpose)), zap.String("to", to), zap.String("code", code.Value))
	}
	return Delivery{Simulated: d.simulated}, nil
}

// SendLoginNotice tells an account holder about a successful sign-in.
func (d *Dispatcher) SendLoginNotice(ctx context.Context, acc *models.Account, ip string, at time.Time) error {
	html, text, err := render(loginHTMLTmpl, loginTextTmpl, loginNotice{
		AppName: d.appName,
		Name:    acc.Name,
		Role:    acc.Role.Label(),
		At:      formatTime(at),
		IP:      ip,
	})
	if err != nil {
		return fmt.Errorf("render login notice: %w", err)
	}
	return d.send(ctx, services.Message{
		To:      acc.Email,
		Subject: fmt.Sprintf("New sign-in to %s", d.appName),
		HTML:    html,
		Text:    text,
	})
}

func (d *Dispatcher) send(ctx context.Context, msg services.Message) error {
	err := d.mailer.Send(ctx, msg)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.MailDispatch.WithLabelValues(d.mode(), result).Inc()
	return err
}

func (d *Dispatcher) link(path, email string) string {
	if d.frontendURL == "" {
		return ""
	}
	return d.frontendURL + path + "?email=" + url.QueryEscape(email)
}
