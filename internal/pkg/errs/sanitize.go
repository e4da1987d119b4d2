package errs

import "strings"

// sanitize flattens a formatted value onto a single line so error messages
// stay safe to embed in logs and HTTP responses.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
