package kinerr

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Invalid("module", "must be positive, got %v", -1.0)
	wrapped := fmt.Errorf("pitch: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidParameter))
	assert.False(t, errors.Is(wrapped, ErrAmbiguousMotion))
	assert.Equal(t, KindInvalidParameter, KindOf(wrapped))
	assert.Equal(t, "module", FieldOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"with field", Invalid("teeth", "must be positive, got 0"), "InvalidParameter: teeth: must be positive, got 0"},
		{"no field", New(KindDegenerateLinkage, "", "rotation delta %.1g below epsilon", 1e-9), "DegenerateLinkage: rotation delta 1e-09 below epsilon"},
		{"bare sentinel", ErrUnsupportedConfiguration, "UnsupportedConfiguration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, "", FieldOf(errors.New("boom")))
}

func TestRequirePositive(t *testing.T) {
	require.NoError(t, RequirePositive("module", 1.5))
	for _, v := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		err := RequirePositive("module", v)
		require.Error(t, err, "value %v", v)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}
}

func TestRequireFinite(t *testing.T) {
	require.NoError(t, RequireFinite("rate", -3))
	assert.ErrorIs(t, RequireFinite("rate", math.Inf(-1)), ErrInvalidParameter)
}
