package guard_test

import (
	"errors"
	"testing"

	"shiptrack/internal/pkg/guard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorGuard_Validate(t *testing.T) {
	errNotConstructed := errors.New("ClaimShipmentCommand must be created via NewClaimShipmentCommand")

	tests := []struct {
		name     string
		guard    guard.ConstructorGuard
		given    error
		expected error
	}{
		{
			name:     "constructed_guard_accepts_custom_error",
			guard:    guard.NewConstructorGuard(),
			given:    errNotConstructed,
			expected: nil,
		},
		{
			name:     "constructed_guard_accepts_nil_error",
			guard:    guard.NewConstructorGuard(),
			given:    nil,
			expected: nil,
		},
		{
			name:     "zero_value_returns_custom_error",
			guard:    guard.ConstructorGuard{},
			given:    errNotConstructed,
			expected: errNotConstructed,
		},
		{
			name:     "zero_value_falls_back_to_default",
			guard:    guard.ConstructorGuard{},
			given:    nil,
			expected: guard.ErrDefaultConstructorGuard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.guard.Validate(tt.given)
			if tt.expected == nil {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, tt.expected, err)
		})
	}
}

func TestConstructorGuard_EmbeddedInValueObject(t *testing.T) {
	type trackingCode struct {
		value string
		guard guard.ConstructorGuard
	}
	errCodeNotConstructed := errors.New("trackingCode must be created via newTrackingCode")

	newTrackingCode := func(v string) (trackingCode, error) {
		if v == "" {
			return trackingCode{}, errors.New("code is required")
		}
		return trackingCode{value: v, guard: guard.NewConstructorGuard()}, nil
	}

	t.Run("should pass when built by constructor", func(t *testing.T) {
		code, err := newTrackingCode("TRK-1")
		require.NoError(t, err)
		require.NoError(t, code.guard.Validate(errCodeNotConstructed))
	})

	t.Run("should fail for literal zero value", func(t *testing.T) {
		var code trackingCode
		assert.Equal(t, errCodeNotConstructed, code.guard.Validate(errCodeNotConstructed))
	})

	t.Run("should survive copies", func(t *testing.T) {
		code, err := newTrackingCode("TRK-2")
		require.NoError(t, err)
		copied := code
		require.NoError(t, copied.guard.Validate(errCodeNotConstructed))
	})
}

func TestConstructorGuard_DefaultErrorMessage(t *testing.T) {
	assert.Equal(t, "object must be created via its constructor", guard.ErrDefaultConstructorGuard.Error())
}

func TestConstructorGuard_ConcurrentValidate(t *testing.T) {
	g := guard.NewConstructorGuard()
	done := make(chan struct{})
	for range 50 {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 100 {
				assert.NoError(t, g.Validate(nil))
			}
		}()
	}
	for range 50 {
		<-done
	}
}
