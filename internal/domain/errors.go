package domain

import "errors"

// Error kinds for each ingestion stage. Components wrap one of these with %w
// so callers can classify a failure with errors.Is.
var (
	ErrTransport      = errors.New("transport error")
	ErrEvaluation     = errors.New("script evaluation failed")
	ErrParse          = errors.New("parse error")
	ErrTimeResolution = errors.New("time resolution error")
	ErrPersistence    = errors.New("persistence error")
)
