package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{name: "domain error passes through", err: NewNotFound("ticket", nil), wantCode: CodeNotFound, wantStatus: http.StatusNotFound},
		{name: "wrapped domain error", err: fmt.Errorf("load: %w", NewMissingResolutionError()), wantCode: CodeMissingResolution, wantStatus: http.StatusUnprocessableEntity},
		{name: "fiber error", err: fiber.NewError(http.StatusForbidden, "nope"), wantCode: CodeForbidden, wantStatus: http.StatusForbidden},
		{name: "plain error", err: errors.New("boom"), wantCode: CodeInternal, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestMissingResolutionCarriesTab(t *testing.T) {
	err := ToDomainError(NewMissingResolutionError())
	assert.Equal(t, "resolution", err.Details["tab"])
}

func TestSequenceGenerationErrorUnwraps(t *testing.T) {
	cause := errors.New("serialization failure")
	err := NewSequenceGenerationError("incident", 5, cause)

	assert.True(t, HasCode(err, CodeSequenceGeneration))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, ToDomainError(err).HTTPStatus)
}
