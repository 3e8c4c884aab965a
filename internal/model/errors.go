package model

import "errors"

var (
	// ErrNotFound is returned when a framework or criterion does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidYear is returned for a publication year outside 1900-2100
	ErrInvalidYear = errors.New("year must be between 1900 and 2100")
)

// ValidYear reports whether y is a plausible publication year
func ValidYear(y int) bool {
	return y >= 1900 && y <= 2100
}
