package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("ticket", nil)))
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", pgx.ErrNoRows)))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestToDomainError(t *testing.T) {
	de := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)

	de = ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)

	orig := NewConflict("taken", nil)
	assert.Same(t, orig, error(ToDomainError(fmt.Errorf("wrap: %w", orig))))
}

func TestAdvisory(t *testing.T) {
	ok := Attempt("react", func() error { return nil })
	assert.True(t, ok.Succeeded())
	assert.Equal(t, "react: ok", ok.String())

	failed := Attempt("react", func() error { return errors.New("rate limited") })
	assert.False(t, failed.Succeeded())
	assert.Equal(t, "react: rate limited", failed.String())
}
