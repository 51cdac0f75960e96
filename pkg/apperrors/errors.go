package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPropertyNotFound = errors.New("property not found")
)
