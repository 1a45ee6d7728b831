package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionNormalizes(t *testing.T) {
	// "e" + combining acute accent composes to U+00E9 under NFC.
	assert.Equal(t, Version("caf\u00e9"), NewVersion("  cafe\u0301 "))
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "1", 0},
		{"9", "10", -1},
		{"10", "9", 1},
		{"1.2", "1.10", -1},
		{"IU-173.4301", "IU-181.2260", -1},
		{"v1", "v1-rc", -1},
		{"007", "7", 0},
		{"a", "b", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(Version(tt.a), Version(tt.b)))
		})
	}
}

func TestVersionSet(t *testing.T) {
	var s VersionSet
	assert.True(t, s.Add("10"))
	assert.True(t, s.Add("2"))
	assert.False(t, s.Add("10"), "duplicates are ignored")

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, Version("10"), s.First())
	assert.Equal(t, []Version{"10", "2"}, s.Slice())
	assert.Equal(t, []string{"2", "10"}, s.Strings())
	assert.True(t, s.Contains("2"))
	assert.False(t, s.Contains("3"))
}

func TestVersionSetUnionAndEqual(t *testing.T) {
	a := NewVersionSet("1", "2")
	b := NewVersionSet("3", "2")
	a.Union(b)

	require.Equal(t, 3, a.Len())
	assert.True(t, a.Equal(NewVersionSet("3", "1", "2")))
	assert.False(t, a.Equal(NewVersionSet("1", "2")))
}

func TestVersionSetZeroValue(t *testing.T) {
	var s VersionSet
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, Version(""), s.First())
	assert.False(t, s.Contains("1"))
	assert.Empty(t, s.Strings())
}
