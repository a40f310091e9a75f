package apierror_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/adiology/cvp/pkg/apierror"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		testFunc func(*testing.T)
	}{
		{
			name: "Error_Error",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.NewError("TestError", "test message")
				expected := "[TestError] test message"
				assert.Equal(t, expected, err.Error())
			},
		},
		{
			name: "Error_Error_WithRawError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				rawErr := fmt.Errorf("raw error")
				err := apierror.NewErrorWithRaw("TestError", "test message", rawErr)
				expected := "[TestError] test message (RawError: raw error)"
				assert.Equal(t, expected, err.Error())
			},
		},
		{
			name: "Error_Is_SameCode",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err1 := apierror.NewError("TestError", "message 1")
				err2 := apierror.NewError("TestError", "message 2")
				assert.True(t, errors.Is(err1, err2))
			},
		},
		{
			name: "Error_Is_DifferentCode",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err1 := apierror.NewError("TestError", "message")
				err2 := apierror.NewError("DifferentError", "message")
				assert.False(t, errors.Is(err1, err2))
			},
		},
		{
			name: "Error_Is_WithPredefinedError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.NewError("InvalidStateTransition", "different message")
				assert.True(t, errors.Is(err, apierror.ErrInvalidStateTransition))
			},
		},
		{
			name: "Error_Is_WrappedKeepsCode",
			testFunc: func(t *testing.T) {
				t.Parallel()
				raw := fmt.Errorf("provider said no")
				err := apierror.WrapError(apierror.ErrProviderCapacity, "capacity exhausted in us-east-1", raw)
				assert.True(t, errors.Is(err, apierror.ErrProviderCapacity))
				assert.Equal(t, apierror.ErrProviderCapacity.HTTPStatus, err.HTTPStatus)
				assert.Equal(t, raw, errors.Unwrap(err))
			},
		},
		{
			name: "Error_Unwrap_NoRawError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.NewError("TestError", "test message")
				assert.Nil(t, errors.Unwrap(err))
			},
		},
		{
			name: "Error_Unwrap_WithRawError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				rawErr := fmt.Errorf("raw error")
				err := apierror.NewErrorWithRaw("TestError", "test message", rawErr)
				assert.Equal(t, rawErr, errors.Unwrap(err))
			},
		},
		{
			name: "ErrorResponse_JSON_HidesInternalFields",
			testFunc: func(t *testing.T) {
				t.Parallel()
				raw := fmt.Errorf("secret internal detail")
				err := apierror.WrapError(apierror.ErrTimeout, "wait for running timed out", raw)
				resp := apierror.NewErrorResponse("req-123", err)

				data, marshalErr := json.Marshal(resp)
				assert.NoError(t, marshalErr)
				assert.Contains(t, string(data), "Timeout")
				assert.Contains(t, string(data), "req-123")
				assert.NotContains(t, string(data), "secret internal detail")
			},
		},
		{
			name: "TaxonomyStatusCodes",
			testFunc: func(t *testing.T) {
				t.Parallel()
				assert.Equal(t, 400, apierror.ErrValidation.HTTPStatus)
				assert.Equal(t, 402, apierror.ErrInsufficientBalance.HTTPStatus)
				assert.Equal(t, 403, apierror.ErrAccessDenied.HTTPStatus)
				assert.Equal(t, 409, apierror.ErrInvalidStateTransition.HTTPStatus)
				assert.Equal(t, 504, apierror.ErrTimeout.HTTPStatus)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, tt.testFunc)
	}
}
