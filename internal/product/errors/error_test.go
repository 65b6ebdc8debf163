package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	// given
	err := fmt.Errorf("lookup: %w", NotFound(7))

	// when
	status, message, fields := Public(err)

	// then
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Product #7 not found", message)
	assert.Nil(t, fields)
	assert.Equal(t, "lookup: Product #7 not found: product not found", err.Error())
}

func TestValidation(t *testing.T) {
	err := Validation("Invalid payload", map[string]string{"page": "min"})

	status, message, fields := Public(err)

	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid payload", message)
	assert.Equal(t, map[string]string{"page": "min"}, fields)
	assert.Equal(t, "Invalid payload", err.Error())
}

func TestInfrastructure(t *testing.T) {
	err := fmt.Errorf("failed to count products: %w", errors.New("connection refused"))

	status, message, _ := Public(err)

	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", message)
	assert.Equal(t, "infrastructure", KindOf(err).String())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(NotFound(1)))
	assert.Equal(t, http.StatusBadRequest, StatusOf(Validation("bad", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}
