package errors

import "errors"

var (
	ErrNotFound = errors.New("tournament not found")

	ErrAlreadyExists = errors.New("tournament already exists")
)
