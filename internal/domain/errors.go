package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound           = errors.New("not found")
	ErrClosed             = errors.New("closed")
	ErrNoDevice           = errors.New("device not present")
	ErrMetricsUnavailable = errors.New("text metrics unavailable")
	ErrBadPayload         = errors.New("malformed payload")
	ErrNotRunning         = errors.New("not running")
)
