package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource Errors
	ErrNotFound        = errors.New("resource not found") // General not found
	ErrProfileNotFound = errors.New("user profile not found")
	ErrSessionNotFound = errors.New("contract session not found")

	// Save Conflict Errors
	ErrNothingToSave = errors.New("nothing to save: save timestamp equals the stored one")
	ErrOutdatedSave  = errors.New("outdated save: a newer save already occupies this slot")

	// Save Data / Catalog Mismatch Errors
	ErrChallengeUnregistered = errors.New("challenge referenced by save data has no catalog entry")

	// Static Data Errors
	ErrInternalInvariant = errors.New("internal invariant violated by static catalog data")

	// General Server Errors
	ErrInternalServer = errors.New("internal server error")
)
