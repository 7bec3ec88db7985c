package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/faultloc/localize/domain"
)

func TestChecker_IsValid(t *testing.T) {
	model := domain.UniformModel("m", 3, 2)
	c, err := NewChecker(model, domain.Combination{1, domain.Unset, 1})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input domain.Combination
		want  bool
	}{
		{"allowed", domain.Combination{0, 0, 0}, true},
		{"forbidden tuple present", domain.Combination{1, 0, 1}, false},
		{"forbidden tuple present other value", domain.Combination{1, 1, 1}, false},
		{"partial input", domain.Combination{1, domain.Unset, 0}, false},
		{"value out of range", domain.Combination{0, 2, 0}, false},
		{"wrong length", domain.Combination{0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsValid(tt.input))
		})
	}
}

func TestChecker_IsExtensionValid(t *testing.T) {
	model := domain.UniformModel("m", 3, 3)
	c, err := NewChecker(model, domain.Combination{1, domain.Unset, 2})
	require.NoError(t, err)

	partial := domain.Combination{1, domain.Unset, domain.Unset}
	assert.True(t, c.IsExtensionValid(partial, 2, 0))
	assert.True(t, c.IsExtensionValid(partial, 1, 2))
	assert.False(t, c.IsExtensionValid(partial, 2, 2))
	assert.False(t, c.IsExtensionValid(partial, 2, 3), "out of range value")
	assert.False(t, c.IsExtensionValid(partial, 5, 0), "out of range parameter")

	// Partial itself is not modified.
	assert.Equal(t, domain.Combination{1, domain.Unset, domain.Unset}, partial)
}

func TestChecker_AddConstraint(t *testing.T) {
	model := domain.UniformModel("m", 2, 2)
	c, err := NewChecker(model)
	require.NoError(t, err)
	assert.True(t, c.IsValid(domain.Combination{0, 1}))

	added, err := c.AddConstraint(domain.Combination{domain.Unset, 1})
	require.NoError(t, err)
	assert.True(t, added)
	assert.False(t, c.IsValid(domain.Combination{0, 1}))

	added, err = c.AddConstraint(domain.Combination{domain.Unset, 1})
	require.NoError(t, err)
	assert.False(t, added, "duplicate")
	assert.Equal(t, 1, c.Len())

	_, err = c.AddConstraint(domain.Combination{0, 4})
	assert.ErrorIs(t, err, domain.ErrInvalidCombination)
	_, err = c.AddConstraint(domain.Combination{0})
	assert.ErrorIs(t, err, domain.ErrInvalidCombination)
}

func TestChecker_EmptyConstraintForbidsEverything(t *testing.T) {
	model := domain.UniformModel("m", 2, 2)
	c, err := NewChecker(model, domain.NewCombination(2))
	require.NoError(t, err)

	assert.False(t, c.IsValid(domain.Combination{0, 0}))
	assert.False(t, c.IsExtensionValid(domain.NewCombination(2), 0, 0))
}

func TestChecker_Violation(t *testing.T) {
	model := domain.UniformModel("m", 3, 2)
	c, err := NewChecker(model, domain.Combination{domain.Unset, 1, 1})
	require.NoError(t, err)

	f, ok := c.Violation(domain.Combination{0, 1, 1})
	require.True(t, ok)
	assert.Equal(t, domain.Combination{domain.Unset, 1, 1}, f)

	_, ok = c.Violation(domain.Combination{0, 1, 0})
	assert.False(t, ok)
}

func TestChecker_Excluding(t *testing.T) {
	model := domain.UniformModel("m", 2, 2)
	c, err := NewChecker(model,
		domain.Combination{1, domain.Unset},
		domain.Combination{domain.Unset, 1})
	require.NoError(t, err)

	relaxed := c.Excluding(domain.Combination{1, domain.Unset})
	assert.Equal(t, 1, relaxed.Len())
	assert.True(t, relaxed.IsValid(domain.Combination{1, 0}))
	assert.False(t, relaxed.IsValid(domain.Combination{1, 1}))

	// The original is unchanged.
	assert.Equal(t, 2, c.Len())
	assert.False(t, c.IsValid(domain.Combination{1, 0}))
}
