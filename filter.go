package beacon

import "strings"

// FilterName returns an AdvFilter that accepts advertisements whose local
// name equals name exactly.
func FilterName(name string) AdvFilter {
	return func(a Advertisement) bool {
		return a.LocalName() == name
	}
}

// FilterNamePrefix returns an AdvFilter that accepts advertisements whose
// local name starts with prefix.
func FilterNamePrefix(prefix string) AdvFilter {
	return func(a Advertisement) bool {
		return strings.HasPrefix(a.LocalName(), prefix)
	}
}
