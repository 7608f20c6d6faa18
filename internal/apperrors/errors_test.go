package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/call-break/internal/protocol"
)

func TestCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, protocol.ErrCodeNotYourTurn, Code(ErrNotYourTurn))
	assert.Equal(t, protocol.ErrCodeInvalidBid, Code(fmt.Errorf("seat 2: %w", ErrInvalidBid)))
	assert.Equal(t, protocol.ErrCodeUnknown, Code(errors.New("boom")))
}

func TestIsValidation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidation(ErrIllegalCard))
	assert.True(t, IsValidation(ErrCardNotInHand))
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", ErrWrongPhase)))
	assert.False(t, IsValidation(ErrRoomNotFound))
	assert.False(t, IsValidation(ErrInvalidToken))
}
