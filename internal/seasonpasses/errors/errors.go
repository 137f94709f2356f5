package errors

import "errors"

var (
	ErrNotFound = errors.New("season pass not found")

	ErrAlreadyExists = errors.New("season pass already exists")
)
