package conserver

import "errors"

// StageError is returned by Process when a link fails. It carries enough context to find the
// failing stage without inspecting logs.
type StageError struct {
	VconID string
	Chain  string
	Link   string

	// Config is true when the link could not be resolved. Configuration errors are dead lettered
	// straight away as retrying them cannot succeed.
	Config bool

	Err error
}

func (e *StageError) Error() string {
	kind := "link error"
	if e.Config {
		kind = "link configuration error"
	}

	return kind + " [chain=" + e.Chain + "] [link=" + e.Link + "] [vcon_id=" + e.VconID + "]: " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a StageError caused by configuration.
func IsConfigError(err error) bool {
	var se *StageError
	if !errors.As(err, &se) {
		return false
	}

	return se.Config
}

// AsStageError returns the StageError in err's chain, if any.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if !errors.As(err, &se) {
		return nil, false
	}

	return se, true
}

func isStageError(err error) bool {
	_, ok := AsStageError(err)
	return ok
}
