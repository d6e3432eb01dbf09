package versions

import "github.com/Masterminds/semver/v3"

// IsNewerVersion reports whether candidate is strictly greater than current.
// Versions that are not semver are compared as strings.
func IsNewerVersion(candidate, current string) bool {
	c, errCandidate := semver.NewVersion(candidate)
	cur, errCurrent := semver.NewVersion(current)
	if errCandidate != nil || errCurrent != nil {
		return candidate > current
	}
	return c.GreaterThan(cur)
}

// Compatible reports whether a client built as client can talk to a server
// reporting server: both must be semver with the same major version. Builds
// without a release version are always considered compatible.
func Compatible(client, server string) bool {
	c, err := semver.NewVersion(client)
	if err != nil {
		return true
	}
	s, err := semver.NewVersion(server)
	if err != nil {
		return true
	}
	return c.Major() == s.Major()
}
