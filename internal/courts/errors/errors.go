package errors

import "errors"

var (
	ErrNotFound = errors.New("court not found")

	ErrInactive = errors.New("court is not bookable")
)
