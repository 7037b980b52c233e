package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidJobState = errors.New("invalid job state")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrDuplicate       = errors.New("already exists")
)
