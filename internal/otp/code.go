// Package otp issues, checks and delivers the six digit one-time codes used for
// email verification and password reset.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/models"
)

const (
	CodeLength = 6
	CodeTTL    = 5 * time.Minute
)

// Purpose selects which code pair on the account a code belongs to.
type Purpose string

const (
	PurposeVerification  Purpose = "email_verification"
	PurposePasswordReset Purpose = "password_reset"
)

var codeSpace = big.NewInt(1_000_000)

// Issue draws a uniformly random code and stamps it with an expiry CodeTTL after now.
func Issue(now time.Time) (*models.OneTimeCode, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	return &models.OneTimeCode{
		Value:     fmt.Sprintf("%0*d", CodeLength, n.Int64()),
		ExpiresAt: now.Add(CodeTTL).UTC(),
	}, nil
}

// Verify checks a submitted code against the stored one. Expiry is checked before
// the value, so a stale code always reports expired.
func Verify(submitted string, stored *models.OneTimeCode, now time.Time) error {
	if stored == nil || stored.Value == "" {
		return apperr.InvalidCode(apperr.ReasonNoCode)
	}
	if now.After(stored.ExpiresAt) {
		return apperr.InvalidCode(apperr.ReasonExpired)
	}
	submitted = strings.TrimSpace(submitted)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(stored.Value)) != 1 {
		return apperr.InvalidCode(apperr.ReasonMismatch)
	}
	return nil
}
