package workflow

import "fmt"

// CollaboratorError wraps a judgment collaborator failure with the phase,
// instrument, and generation where it happened. It is fatal to the run.
type CollaboratorError struct {
	Phase      Phase
	Instrument string
	Generation int
	Err        error
}

func (e *CollaboratorError) Error() string {
	if e.Instrument != "" {
		return fmt.Sprintf("collaborator failure in %s (instrument %s, generation %d): %v",
			e.Phase, e.Instrument, e.Generation, e.Err)
	}
	return fmt.Sprintf("collaborator failure in %s (generation %d): %v", e.Phase, e.Generation, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
