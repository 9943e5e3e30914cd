// Package matching resolves free-text signup locations to canonical precincts.
package matching

import "strings"

var stripped = strings.NewReplacer("*", "", ",", "")

// Normalize lowercases s, drops '*' and ',' and collapses whitespace.
// Every strategy that compares text goes through it.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(stripped.Replace(strings.ToLower(s))), " ")
}
