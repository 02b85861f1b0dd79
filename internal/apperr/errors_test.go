package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("save account: %w", Duplicate("email"))

	assert.Equal(t, KindDuplicate, KindOf(err))
	e, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "email", e.Field)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", InvalidCode(ReasonExpired))

	assert.True(t, errors.Is(err, InvalidCode(ReasonMismatch)))
	assert.False(t, errors.Is(err, NotFound("")))
}

func TestInvalidCodeMessages(t *testing.T) {
	assert.Equal(t, ReasonExpired, InvalidCode(ReasonExpired).Reason)
	assert.Contains(t, InvalidCode(ReasonExpired).Message, "expired")
	assert.Contains(t, InvalidCode(ReasonNoCode).Message, "no verification code")
	assert.Equal(t, "invalid verification code", InvalidCode(ReasonMismatch).Message)
}

func TestDeliveryUnwraps(t *testing.T) {
	cause := errors.New("535 auth failed")
	err := Delivery(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "535 auth failed")
}
