package progress

import "github.com/p-n-ai/pai-progress/internal/curriculum"

// Classify returns the unlock state of every topic keyed by 1-based ordinal.
// A topic unlocks when its immediate predecessor is complete; the first topic
// is never locked. Completion is sticky regardless of neighbours.
func Classify(topics []curriculum.Topic, completed KeySet) map[int]UnlockState {
	states := make(map[int]UnlockState, len(topics))
	for i, t := range topics {
		switch {
		case completed.Has(t.TopicKey()):
			states[i+1] = StateCompleted
		case i == 0 || completed.Has(topics[i-1].TopicKey()):
			states[i+1] = StateAvailable
		default:
			states[i+1] = StateLocked
		}
	}
	return states
}
