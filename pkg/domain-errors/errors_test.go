package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	t.Run("new carries code and message", func(t *testing.T) {
		err := New(CodeConflict, "memo already decided")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
		assert.Equal(t, "memo already decided", err.Error())
	})

	t.Run("wrap keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("socket closed")
		err := Wrap(cause, CodeInternal, "failed to load memo")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to load memo: socket closed", err.Error())
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("approve: %w", New(CodeCalendarFailed, "bad date"))
		assert.True(t, Is(err, CodeCalendarFailed))
		assert.Equal(t, CodeCalendarFailed, CodeOf(err))
	})

	t.Run("plain errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}
