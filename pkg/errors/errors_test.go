package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_FormatsCodeAndMessage(t *testing.T) {
	err := NewError("LOAD_FAILED", "could not load story file", nil)
	assert.Equal(t, "[LOAD_FAILED] could not load story file", err.Error())

	wrapped := NewError("LOAD_FAILED", "could not load story file", ErrNotFound)
	assert.Contains(t, wrapped.Error(), "not found")
}

func TestError_UnwrapsToSentinel(t *testing.T) {
	err := NewError("STORE", "read failed", ErrNotFound)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsDuplicateName(err))
}

func TestSentinels_SurviveWrapping(t *testing.T) {
	err := fmt.Errorf("variable %q: %w", "gold", ErrDuplicateName)
	require.True(t, IsDuplicateName(err))

	err = fmt.Errorf("node %d: %w", 4, ErrNodeNotFound)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}
