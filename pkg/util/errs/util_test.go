package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSilent(t *testing.T) {
	err := NewSilentErr("ignoring %s", "AP-ENABLED")
	assert.True(t, IsSilent(err))
	assert.True(t, IsSilent(fmt.Errorf("parse: %w", err)))
	assert.Equal(t, "ignoring AP-ENABLED", err.Error())

	assert.False(t, IsSilent(errors.New("boom")))
	assert.False(t, IsSilent(nil))
}
