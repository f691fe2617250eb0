package stringslice

import (
	"sort"
	"strings"
)

// Has returns true if a given slice has the provided string s.
func Has(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

// HasFold is Has under Unicode case folding. Azure resource IDs and service names compare this way.
func HasFold(slice []string, s string) bool {
	for _, item := range slice {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// Add returns a []string with s appended if it is not already found in the provided slice.
func Add(slice []string, s string) []string {
	if Has(slice, s) {
		return slice
	}
	return append(slice, s)
}

// Union appends every item of extra missing from slice, case-insensitively, keeping the order of both.
func Union(slice []string, extra ...string) []string {
	out := make([]string, 0, len(slice)+len(extra))
	for _, item := range append(append([]string{}, slice...), extra...) {
		if !HasFold(out, item) {
			out = append(out, item)
		}
	}
	return out
}

// EqualFold reports whether both slices hold the same items ignoring order and case. Duplicates are ignored.
func EqualFold(a, b []string) bool {
	return strings.Join(normalize(a), "\x00") == strings.Join(normalize(b), "\x00")
}

func normalize(slice []string) []string {
	out := Union(nil)
	for _, item := range slice {
		out = Union(out, strings.ToLower(item))
	}
	sort.Strings(out)
	return out
}
