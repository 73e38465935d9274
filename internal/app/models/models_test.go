package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArea(t *testing.T) {
	for _, a := range Areas {
		got, err := ParseArea(a.Upper())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	got, err := ParseArea(" c ")
	require.NoError(t, err)
	assert.Equal(t, Area("c"), got)

	for _, bad := range []string{"", "i", "ab", "1"} {
		_, err := ParseArea(bad)
		assert.Error(t, err, bad)
	}
}
