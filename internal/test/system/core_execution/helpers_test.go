package system

import "strings"

// indexOf is strings.Index that fails comparisons loudly when sub is absent.
func indexOf(s, sub string) int {
	i := strings.Index(s, sub)
	if i < 0 {
		return 1 << 30
	}
	return i
}
