package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"unknown domain", fmt.Errorf("resolving: %w", ErrUnknownDomain), http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"missing data", fmt.Errorf("loading: %w", ErrMissingData), http.StatusNotFound},
		{"anything else", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError_UnwrapAndMessage(t *testing.T) {
	err := Newf(ErrUnknownDomain, http.StatusBadRequest, "domain %q", "styles")

	assert.ErrorIs(t, err, ErrUnknownDomain)
	assert.Equal(t, `unknown domain: domain "styles"`, err.Error())
}
