package chaterr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tj/assert"
)

func TestKinds(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		err := fmt.Errorf("failed to send message: %w", Required("roomId"))
		assert.True(t, errors.Is(err, ErrValidation))

		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
		assert.Equal(t, "roomId", ve.Field)
		assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	})

	t.Run("not found", func(t *testing.T) {
		err := NotFound("message %v/%v", "R", 10)
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, "message R/10: not found", err.Error())
		assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	})

	t.Run("forbidden", func(t *testing.T) {
		err := Forbidden("feed %v", "user:alice")
		assert.True(t, errors.Is(err, ErrForbidden))
		assert.Equal(t, http.StatusForbidden, HTTPStatus(err))
	})

	t.Run("unavailable keeps the cause", func(t *testing.T) {
		cause := errors.New("throttled")
		err := Unavailable(cause)
		assert.True(t, errors.Is(err, ErrStoreUnavailable))
		assert.True(t, errors.Is(err, cause))
		assert.Equal(t, err, Unavailable(err))
		assert.Nil(t, Unavailable(nil))
		assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	})

	t.Run("conflict", func(t *testing.T) {
		err := fmt.Errorf("message R/1: %w", ErrConflict)
		assert.Equal(t, http.StatusConflict, HTTPStatus(err))
	})
}
