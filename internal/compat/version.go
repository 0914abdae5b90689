package compat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a normalized OS major version number (macOS 14, iPadOS 17, ...).
type Version int

var (
	platformPrefixRe = regexp.MustCompile(`(?i)^\s*(?:mac\s*os(?:\s*x)?|ipad\s*os|ios|tvos|watchos|visionos)\s*`)
	numericRe        = regexp.MustCompile(`^(\d+)(?:\.\d+){0,2}$`)
)

// releaseNames maps marketing names to their major version.
var releaseNames = map[string]Version{
	"big sur":  11,
	"monterey": 12,
	"ventura":  13,
	"sonoma":   14,
	"sequoia":  15,
	"tahoe":    26,
}

// ParseVersion normalizes a version given either as a number ("14", "14.2",
// "macOS 14", "iPadOS 17.1") or a release name ("Sonoma") into a Version.
func ParseVersion(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	s = platformPrefixRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	if m := numericRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return Version(n), nil
		}
	}

	if v, ok := releaseNames[strings.ToLower(s)]; ok {
		return v, nil
	}

	return 0, fmt.Errorf("unable to parse version: %q", raw)
}

func (v Version) String() string {
	return strconv.Itoa(int(v))
}
