package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidHostPort(t *testing.T) {
	assert.NoError(t, ValidHostPort("0.0.0.0:2244"))
	assert.NoError(t, ValidHostPort(":80"))
	assert.Error(t, ValidHostPort("localhost"))
}

func TestValidChannel(t *testing.T) {
	for _, ch := range []int{1, 6, 14} {
		assert.NoError(t, ValidChannel(ch), ch)
	}
	for _, ch := range []int{-1, 0, 15, 36} {
		assert.Error(t, ValidChannel(ch), ch)
	}
}

func TestValidSSID(t *testing.T) {
	assert.NoError(t, ValidSSID("ESP32-Access-Point"))
	assert.NoError(t, ValidSSID(strings.Repeat("a", SSIDMaxLength)))
	assert.Error(t, ValidSSID(""))
	assert.Error(t, ValidSSID(strings.Repeat("a", SSIDMaxLength+1)))
	assert.Error(t, ValidSSID("\xff\xfe"))
}

func TestValidMAC(t *testing.T) {
	addr, err := ValidMAC("02:00:00:00:00:01")
	require.NoError(t, err)
	assert.Equal(t, "02:00:00:00:00:01", addr.String())

	_, err = ValidMAC("02:00:00:00:00:00:00:01")
	assert.Error(t, err)
	_, err = ValidMAC("not a mac")
	assert.Error(t, err)
}
