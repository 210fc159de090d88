package extraction

import "fmt"

// ExtractionError reports that a learner message could not be turned into a needs
// update. The prior needs are always left unchanged.
type ExtractionError struct {
	Message string
	Cause   error
	// Timeout is set when the completion did not answer within the deadline.
	Timeout bool
	// Raw is the completion output, when one was received.
	Raw string
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
