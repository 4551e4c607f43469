package apperrors

import (
	"errors"
)

var (
	ErrLoginFailed    = errors.New("login failed")
	ErrSessionExpired = errors.New("session expired")
	ErrFetchFailed    = errors.New("fetch from source failed")

	ErrSnapshotNotFound = errors.New("staged snapshot not found")

	ErrUnknownColumn   = errors.New("column not present in catalog schema")
	ErrEmptyBatch      = errors.New("no rows to load")
	ErrConcurrentLoad  = errors.New("concurrent load into the same table")
	ErrRunNotFound     = errors.New("pipeline run not found")
	ErrRunAlreadyEnded = errors.New("pipeline run already finished")
)
