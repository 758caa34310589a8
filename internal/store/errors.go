package store

import "errors"

var (
	// ErrNotConfigured is returned by every operation of a backend that has
	// not been set up.
	ErrNotConfigured  = errors.New("league store is not configured")
	ErrLeagueNotFound = errors.New("league not found")
	ErrNotFound       = errors.New("record not found")
	// ErrDuplicate rejects a write that would replace an existing record.
	ErrDuplicate = errors.New("record already exists")
	// ErrInvalidImport rejects an export payload before anything is written.
	ErrInvalidImport = errors.New("invalid league import")
)
