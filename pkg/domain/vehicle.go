package domain

import "unicode/utf8"

// Registration length bounds enforced by the lookup endpoint.
const (
	MinRegistrationLen = 2
	MaxRegistrationLen = 7
)

// Vehicle is the summary returned by the registration lookup endpoint.
// Fields the registry does not know come back as "N/A".
type Vehicle struct {
	Registration   string `json:"registration"`
	Brand          string `json:"brand"`
	Model          string `json:"model"`
	Year           string `json:"year"`
	NextEUApproval string `json:"nextEuApproval"`
}

// ValidRegistrationLen reports whether reg has an acceptable length.
func ValidRegistrationLen(reg string) bool {
	n := utf8.RuneCountInString(reg)
	return n >= MinRegistrationLen && n <= MaxRegistrationLen
}
