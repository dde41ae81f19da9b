package fetcher

import "stakefetcher/internal/stake"

// Outcome is the result of one fetch cycle: either a Snapshot or a failure.
// It's designed to be handed from a background worker to the publisher
// that owns the consumer-visible state.
type Outcome struct {
	// Key is the stake key the fetch ran for
	Key stake.Key

	// Snapshot is valid only when Err is nil
	Snapshot stake.Snapshot

	// Err is set on failure. It is always a *FetchError when produced by
	// this module.
	Err error
}

// Success wraps a completed snapshot.
func Success(snap stake.Snapshot) Outcome {
	return Outcome{Key: snap.Key, Snapshot: snap}
}

// Failure wraps err for key.
func Failure(key stake.Key, err error) Outcome {
	return Outcome{Key: key, Err: err}
}

// OK reports whether the outcome carries a snapshot.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Kind returns the failure category, or "" on success.
func (o Outcome) Kind() ErrorType {
	if o.Err == nil {
		return ""
	}
	return KindOf(o.Err)
}
