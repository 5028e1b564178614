package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrStructuralInput", ErrStructuralInput},
		{"ErrMissingID", ErrMissingID},
		{"ErrStorage", ErrStorage},
		{"ErrMigrationFailed", ErrMigrationFailed},
		{"ErrUnknownSchemaVersion", ErrUnknownSchemaVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrStructuralInput, ErrInvalidInput))
	assert.False(t, errors.Is(ErrStorage, ErrMigrationFailed))
	assert.False(t, errors.Is(ErrMissingID, ErrNotFound))
}

func TestErrors_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("upsert %q: %w", "a", ErrStorage)
	assert.True(t, errors.Is(wrapped, ErrStorage))
	assert.Contains(t, wrapped.Error(), "storage failure")
}
