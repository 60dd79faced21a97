package models

import "errors"

var (
	// ErrMissingParameter is returned when a required request field is absent
	ErrMissingParameter = errors.New("missing parameter")

	// ErrInvalidInput is returned when a field is present but unusable
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated is returned when the caller's credentials are absent or malformed
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound is returned for unknown sheets, records and invalid share tokens
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint in the relational store fails
	ErrConflict = errors.New("conflict")

	// ErrUpstream is returned for any failure of the spreadsheet API or the token store
	ErrUpstream = errors.New("upstream failure")
)
