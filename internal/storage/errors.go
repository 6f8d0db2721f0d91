package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidRecord is returned when a record is missing required fields
var ErrInvalidRecord = errors.New("invalid record")
