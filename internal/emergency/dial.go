package emergency

import "strings"

// DialURI returns the tel: URI handed to the platform dialer.
func DialURI(number string) string {
	var b strings.Builder
	b.WriteString("tel:")
	for _, r := range number {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
