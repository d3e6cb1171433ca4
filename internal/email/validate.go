package email

import "regexp"

var addressRe = regexp.MustCompile(`^\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b$`)

// IsValid reports whether address looks like an email address. The whole
// string must match.
func IsValid(address string) bool {
	return addressRe.MatchString(address)
}
