package store

import "errors"

// ErrNotFound is returned when a requested user does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a write would violate the unique email
// constraint. The handler layer maps this to 409 Conflict.
var ErrDuplicateEmail = errors.New("email already in use")
