package database

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// versionPattern matches "16.2", "9.6.24" and "17beta1" style versions.
var versionPattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// VersionInfo represents parsed PostgreSQL version information
type VersionInfo struct {
	Major int    // Major version number (e.g., 16)
	Minor int    // Minor version number (e.g., 2)
	Patch int    // Patch version number, only used before PostgreSQL 10
	Raw   string // Raw server_version setting
}

// String returns the version as "major.minor" or "major.minor.patch".
func (v VersionInfo) String() string {
	if v.Patch > 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsAtLeast checks if this version is at least the specified version
func (v VersionInfo) IsAtLeast(major, minor int) bool {
	if v.Major > major {
		return true
	}
	return v.Major == major && v.Minor >= minor
}

// SupportsBootstrap returns true if the server understands
// ADD COLUMN IF NOT EXISTS, which was introduced in PostgreSQL 9.6.
func (v VersionInfo) SupportsBootstrap() bool {
	return v.IsAtLeast(9, 6)
}

// ServerVersion retrieves and parses the server_version setting.
func (c *Client) ServerVersion(ctx context.Context) (*VersionInfo, error) {
	var raw string
	if err := c.db.QueryRowContext(ctx, "SHOW server_version").Scan(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to query PostgreSQL version")
	}

	version, err := ParseVersion(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse PostgreSQL version: %s", raw)
	}

	return version, nil
}

// ParseVersion parses a server_version value. Examples of accepted input:
//
//   - "16.2"
//   - "16.2 (Debian 16.2-1.pgdg120+2)"
//   - "9.6.24"
//   - "17beta1"
func ParseVersion(raw string) (*VersionInfo, error) {
	matches := versionPattern.FindStringSubmatch(raw)
	if matches == nil {
		return nil, errors.Errorf("invalid version format: %s", raw)
	}

	parts := make([]int, 3)
	for i, m := range matches[1:] {
		if m == "" {
			continue
		}

		n, err := strconv.Atoi(m)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid version component: %s", m)
		}
		parts[i] = n
	}

	return &VersionInfo{
		Major: parts[0],
		Minor: parts[1],
		Patch: parts[2],
		Raw:   raw,
	}, nil
}
