package common

import "strings"

// CollapseSpace trims s and folds internal whitespace runs to a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
