package analysis

import "errors"

var (
	// ErrInvalidArgument is returned for a non-positive chunk size or pool width.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingInput is returned when question-answer mode has no question.
	ErrMissingInput = errors.New("please provide a question for the analysis")
	// ErrEmptyDocument is returned when extraction produced no text.
	ErrEmptyDocument = errors.New("no text could be extracted from the document")
	// ErrCancellationRequested is returned by a checkpoint that observed a stop.
	ErrCancellationRequested = errors.New("operation cancelled: stop requested")
)
