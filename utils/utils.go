// Package utils provides utility functions for the application.
package utils

func ToPtr[T any](v T) *T {
	return &v
}

// DerefString returns the pointed-to string or "" for nil.
func DerefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
