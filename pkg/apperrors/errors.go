package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrLastTable       = errors.New("cannot remove last table")
	ErrJobTerminal     = errors.New("job already in a terminal state")
	ErrJobInFlight     = errors.New("a job is already in flight")
	ErrResultRetrieval = errors.New("result retrieval failed")
	ErrUnsupportedFmt  = errors.New("unsupported output format")
)
