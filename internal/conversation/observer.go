package conversation

import "time"

// Observer receives controller events for metrics. Events of a turn are delivered
// once, after the turn has been saved.
type Observer interface {
	// Transitioned is called for each step change after it has been saved.
	Transitioned(t Transition)
	ExtractionFailed(timeout bool)
	// SearchCompleted is called after every catalog search, successful or not.
	SearchCompleted(elapsed time.Duration, results int, err error)
	ConflictRetried()
}

// NopObserver discards all events
type NopObserver struct{}

func (NopObserver) Transitioned(Transition) {}
func (NopObserver) ExtractionFailed(bool) {}
func (NopObserver) SearchCompleted(time.Duration, int, error) {}
func (NopObserver) ConflictRetried() {}
