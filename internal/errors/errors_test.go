package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeDeviceNotFound, "Device not found")
		assert.Equal(t, "DEVICE_NOT_FOUND: Device not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := DeviceOffline("Projector", cause)
		assert.Contains(t, err.Error(), "DEVICE_OFFLINE")
		assert.Contains(t, err.Error(), "Projector")
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "voiceToken"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
		expectedKind Kind
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized, KindAuth},
		{"Forbidden", func() *AppError { return Forbidden("test") }, ErrCodeForbidden, KindAuth},
		{"SessionInvalid", SessionInvalid, ErrCodeSessionInvalid, KindAuth},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation, KindValidation},
		{"MissingRequired", func() *AppError { return MissingRequired("command") }, ErrCodeMissingRequired, KindValidation},
		{"PayloadTooLarge", PayloadTooLarge, ErrCodePayloadTooLarge, KindValidation},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded(time.Minute) }, ErrCodeRateLimitExceeded, KindRateLimited},
		{"DeviceNotFound", func() *AppError { return DeviceNotFound("lamp") }, ErrCodeDeviceNotFound, KindResolution},
		{"SwitchNotFound", func() *AppError { return SwitchNotFound("main", "Lab") }, ErrCodeSwitchNotFound, KindResolution},
		{"AmbiguousDevice", func() *AppError { return AmbiguousDevice("light", []string{"a", "b"}) }, ErrCodeAmbiguousDevice, KindResolution},
		{"AmbiguousSwitch", func() *AppError { return AmbiguousSwitch("Lab", []string{"a", "b"}) }, ErrCodeAmbiguousSwitch, KindResolution},
		{"DeviceOffline", func() *AppError { return DeviceOffline("Lab", nil) }, ErrCodeDeviceOffline, KindExecution},
		{"ActionUnsupported", func() *AppError { return ActionUnsupported("dim", "fan") }, ErrCodeActionUnsupported, KindExecution},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal, KindInternal},
		{"Database", func() *AppError { return Database(errors.New("x")) }, ErrCodeDatabase, KindInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.Equal(t, tc.expectedKind, err.Kind())
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestRateLimitExceeded(t *testing.T) {
	t.Run("carries retry after rounded up", func(t *testing.T) {
		err := RateLimitExceeded(1500 * time.Millisecond)
		details, ok := err.Details.(RetryAfterDetails)
		assert.True(t, ok)
		assert.Equal(t, 2, details.RetryAfter)
	})

	t.Run("never reports less than one second", func(t *testing.T) {
		assert.Equal(t, 1, RetryAfterSeconds(0))
		assert.Equal(t, 1, RetryAfterSeconds(-time.Second))
	})
}

func TestActionUnsupportedMessage(t *testing.T) {
	assert.Equal(t, "Could not determine the action to perform", ActionUnsupported("", "light").Message)
	assert.Contains(t, ActionUnsupported("dim", "fan").Message, "fan")
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts wrapped AppError", func(t *testing.T) {
		original := DeviceNotFound("lamp")
		wrapped := fmt.Errorf("resolve: %w", original)
		extracted, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
		assert.True(t, IsAppError(wrapped))
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		extracted, ok := AsAppError(errors.New("standard error"))
		assert.False(t, ok)
		assert.Nil(t, extracted)
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindResolution, KindOf(AmbiguousDevice("x", nil)))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("boom")))
	assert.Equal(t, KindInternal, ErrorCode("SOMETHING_ELSE").Kind())
}
