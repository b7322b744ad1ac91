package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *VersionInfo
		wantErr  bool
	}{
		{
			name:     "modern version",
			input:    "16.2",
			expected: &VersionInfo{Major: 16, Minor: 2, Raw: "16.2"},
		},
		{
			name:     "with distribution suffix",
			input:    "16.2 (Debian 16.2-1.pgdg120+2)",
			expected: &VersionInfo{Major: 16, Minor: 2, Raw: "16.2 (Debian 16.2-1.pgdg120+2)"},
		},
		{
			name:     "three part version",
			input:    "9.6.24",
			expected: &VersionInfo{Major: 9, Minor: 6, Patch: 24, Raw: "9.6.24"},
		},
		{
			name:     "pre-release",
			input:    "17beta1",
			expected: &VersionInfo{Major: 17, Raw: "17beta1"},
		},
		{
			name:    "garbage",
			input:   "unknown",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := ParseVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, version)
		})
	}
}

func TestVersionInfo_String(t *testing.T) {
	assert.Equal(t, "16.2", VersionInfo{Major: 16, Minor: 2}.String())
	assert.Equal(t, "9.6.24", VersionInfo{Major: 9, Minor: 6, Patch: 24}.String())
}

func TestVersionInfo_IsAtLeast(t *testing.T) {
	tests := []struct {
		version  VersionInfo
		major    int
		minor    int
		expected bool
	}{
		{version: VersionInfo{Major: 16, Minor: 2}, major: 9, minor: 6, expected: true},
		{version: VersionInfo{Major: 9, Minor: 6}, major: 9, minor: 6, expected: true},
		{version: VersionInfo{Major: 9, Minor: 5}, major: 9, minor: 6, expected: false},
		{version: VersionInfo{Major: 8, Minor: 4}, major: 9, minor: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.version.IsAtLeast(tt.major, tt.minor))
		})
	}
}

func TestVersionInfo_SupportsBootstrap(t *testing.T) {
	assert.True(t, VersionInfo{Major: 10}.SupportsBootstrap())
	assert.True(t, VersionInfo{Major: 9, Minor: 6}.SupportsBootstrap())
	assert.False(t, VersionInfo{Major: 9, Minor: 5}.SupportsBootstrap())
}
