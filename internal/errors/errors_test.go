package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, "plain", Validation("plain").Error())
	assert.Equal(t, "wrapped: boom", Wrap(cause, ErrCodeInternal, "wrapped").Error())
	assert.Equal(t, "plugin x: boom", Wrapf(cause, ErrCodeUnavailable, "plugin %s", "x").Error())
	assert.Equal(t, "missing 7", NotFoundf("missing %d", 7).Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "x"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "x %d", 1))
}

func TestCodeHelpers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
		code ErrorCode
	}{
		{name: "not found", err: NotFound("x"), is: IsNotFound, code: ErrCodeNotFound},
		{name: "validation", err: Validationf("bad %s", "y"), is: IsValidation, code: ErrCodeValidation},
		{name: "unavailable", err: Unavailable("down"), is: IsUnavailable, code: ErrCodeUnavailable},
		{name: "invalid filter", err: InvalidFilter(errors.New("offset 3")), is: IsInvalidFilter, code: ErrCodeInvalidFilter},
		{name: "timeout", err: Wrap(errors.New("t"), ErrCodeTimeout, "slow"), is: IsTimeout, code: ErrCodeTimeout},
		{name: "canceled", err: Wrap(errors.New("c"), ErrCodeCanceled, "stop"), is: IsCanceled, code: ErrCodeCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.is(wrapped))
			assert.Equal(t, tt.code, GetCode(wrapped))
			assert.False(t, IsConflict(wrapped))
		})
	}

	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
}

func TestInvalidFilterKeepsCause(t *testing.T) {
	sentinel := errors.New("invalid filter")
	cause := fmt.Errorf("at offset 4: %w", sentinel)

	err := InvalidFilter(cause)

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, "filter", GetField(err))
	assert.Contains(t, err.Error(), "at offset 4")
}

func TestValidationField(t *testing.T) {
	err := ValidationField("url", "url is required")
	assert.Equal(t, "url", GetField(err))
	assert.Equal(t, "", GetField(errors.New("x")))
}
