package utils

import "strings"

// NormalizeName trims, collapses internal whitespace and lowercases a name.
// All member lookups compare normalized forms.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// BuildFullName joins the trimmed first and last name with a single space,
// dropping whichever part is empty.
func BuildFullName(first, last string) string {
	f := strings.TrimSpace(first)
	l := strings.TrimSpace(last)
	switch {
	case f == "" && l == "":
		return ""
	case l == "":
		return f
	case f == "":
		return l
	}
	return f + " " + l
}
