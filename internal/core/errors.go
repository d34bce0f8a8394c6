package core

import "errors"

// ErrValidation matches every *ValidationError through errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError is a rejected input field. It is returned before any
// mutation reaches storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrNameRequired      = &ValidationError{Field: "name", Message: "name required"}
	ErrNameTooLong       = &ValidationError{Field: "name", Message: "name too long (max 200 characters)"}
	ErrInvalidLatitude   = &ValidationError{Field: "latitude", Message: "latitude must be a number between -90 and 90"}
	ErrInvalidLongitude  = &ValidationError{Field: "longitude", Message: "longitude must be a number between -180 and 180"}
	ErrInvalidCategory   = &ValidationError{Field: "category", Message: "invalid category"}
	ErrInvalidPrice      = &ValidationError{Field: "price", Message: "price must be a number greater than zero and at most 100000000"}
	ErrInvalidQuantity   = &ValidationError{Field: "quantity", Message: "quantity must be an integer between 1 and 10000"}
	ErrInvalidDate       = &ValidationError{Field: "date", Message: "invalid date (expected YYYY-MM-DD)"}
	ErrReferenceRequired = &ValidationError{Field: "reference", Message: "product and store are required"}
)
