package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  Version
		expectErr bool
	}{
		{name: "Bare number", raw: "14", expected: 14},
		{name: "Dotted number", raw: "14.2.1", expected: 14},
		{name: "Platform prefix", raw: "macOS 15", expected: 15},
		{name: "iPadOS prefix", raw: "iPadOS 17.1", expected: 17},
		{name: "Release name", raw: "Sonoma", expected: 14},
		{name: "Release name mixed case", raw: "  big   SUR ", expected: 11},
		{name: "Release name with prefix", raw: "macOS Tahoe", expected: 26},
		{name: "Unknown name", raw: "Cheetah", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
		{name: "Zero", raw: "0", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ParseVersion(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, v)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	assert.Equal(t, []Version{11, 12, 13, 14, 15, 26}, Supported("MacBookAir10,1"))
	assert.Equal(t, []Version{13, 14, 15, 16, 17, 18}, Supported("iPad7,11"))
	assert.Equal(t, []Version{16, 17, 18, 26}, Supported("iPad13,18"))
	assert.Nil(t, Supported("Newton1,1"))
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports("iPad12,1", 26))
	assert.False(t, Supports("iPad7,11", 26))
	assert.False(t, Supports("MacBookAir9,1", 15))
	assert.False(t, Supports("unknown", 14))
}
