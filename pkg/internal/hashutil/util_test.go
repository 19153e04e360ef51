package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bind struct {
	Enabled bool
	Bind    string
}

func TestChanged(t *testing.T) {
	h, changed, err := Changed(nil, bind{true, "0.0.0.0:2244"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, h, 32)

	h2, changed, err := Changed(h, bind{true, "0.0.0.0:2244"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, h, h2)

	_, changed, err = Changed(h, bind{false, "0.0.0.0:2244"})
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestChanged_Unmarshalable(t *testing.T) {
	prev := []byte{1}
	h, changed, err := Changed(prev, make(chan int))
	require.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, prev, h)
}
