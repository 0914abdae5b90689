// Package compat answers which OS major versions a device model identifier supports.
package compat

import "strings"

type versionRange struct {
	first, last Version
}

// supported is keyed by model identifier (the API's productType attribute).
var supported = map[string]versionRange{
	// Mac
	"MacBookAir9,1":  {11, 14},
	"MacBookAir10,1": {11, 26},
	"Mac14,2":        {12, 26},
	"Mac14,15":       {13, 26},
	"Mac15,12":       {14, 26},
	"Mac16,12":       {15, 26},
	"MacBookPro16,1": {11, 15},
	"MacBookPro17,1": {11, 26},
	"Macmini9,1":     {11, 26},
	"iMac21,1":       {11, 26},

	// iPad
	"iPad7,11":  {13, 18},
	"iPad7,12":  {13, 18},
	"iPad11,6":  {14, 26},
	"iPad11,7":  {14, 26},
	"iPad12,1":  {15, 26},
	"iPad12,2":  {15, 26},
	"iPad13,18": {16, 26},
	"iPad13,19": {16, 26},
	"iPad14,1":  {15, 26},
	"iPad15,7":  {18, 26},
}

// Supported returns the ascending list of major versions supported by the
// model identifier. Unknown identifiers yield nil.
func Supported(productType string) []Version {
	r, ok := supported[productType]
	if !ok {
		return nil
	}

	var out []Version
	for v := r.first; v <= r.last; v++ {
		// Apple jumped from 18 to 26 (and macOS from 15 to 26).
		if v > 18 && v < 26 {
			continue
		}
		if v > 15 && v < 19 && isMac(productType) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Supports reports whether productType runs version v.
func Supports(productType string, v Version) bool {
	for _, s := range Supported(productType) {
		if s == v {
			return true
		}
	}
	return false
}

func isMac(productType string) bool {
	return strings.HasPrefix(productType, "Mac") || strings.HasPrefix(productType, "iMac")
}
