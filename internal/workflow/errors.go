package workflow

import "errors"

var (
	// ErrMissingInput means analyze was asked for before the before photo,
	// dish and after photo were all present.
	ErrMissingInput      = errors.New("missing input")
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrBusy is returned for inputs that arrive while an analysis is running.
	ErrBusy             = errors.New("analysis in progress")
	ErrUnknownDish      = errors.New("unknown dish")
	ErrEmptyImage       = errors.New("empty image")
	ErrAnalysisTimeout  = errors.New("analysis timed out")
	ErrAlreadyAnalyzing = errors.New("analysis already running for this scan")
)
