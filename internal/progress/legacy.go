package progress

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/p-n-ai/pai-progress/internal/curriculum"
)

// The local cache addresses topics by 1-based ordinal rather than by key.
// Everything that reads or writes that format lives in this file so the
// ordinal addressing can be retired without touching the reconciler.

// LocalCacheKey returns the cache entry name for a course/section.
func LocalCacheKey(courseID, sectionID string) string {
	return courseID + "_" + sectionID + "_completed"
}

// DecodeOrdinals parses a cached ordinal list. Anything that is not a JSON
// array yields nil; elements that are not positive integers are dropped one
// by one, so a single bad entry never discards its neighbours.
func DecodeOrdinals(raw []byte) []int {
	if len(raw) == 0 {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}

	ordinals := make([]int, 0, len(elems))
	for _, elem := range elems {
		var n float64
		if err := json.Unmarshal(elem, &n); err != nil {
			continue
		}
		if n < 1 || n != math.Trunc(n) || n > math.MaxInt32 {
			continue
		}
		ordinals = append(ordinals, int(n))
	}
	return ordinals
}

// EncodeOrdinals writes ordinals as a sorted, deduplicated JSON array.
func EncodeOrdinals(ordinals []int) []byte {
	seen := make(map[int]bool, len(ordinals))
	out := make([]int, 0, len(ordinals))
	for _, o := range ordinals {
		if o < 1 || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	sort.Ints(out)

	data, _ := json.Marshal(out)
	return data
}

// OrdinalsToKeys translates ordinals into topic keys, ignoring ordinals that
// fall outside the topic list.
func OrdinalsToKeys(ordinals []int, topics []curriculum.Topic) KeySet {
	keys := make(KeySet)
	for _, o := range ordinals {
		if o < 1 || o > len(topics) {
			continue
		}
		keys.Add(topics[o-1].TopicKey())
	}
	return keys
}

// KeysToOrdinals translates topic keys back into ordinals. Unknown keys are dropped.
func KeysToOrdinals(keys KeySet, topics []curriculum.Topic) []int {
	var ordinals []int
	for i, t := range topics {
		if keys.Has(t.TopicKey()) {
			ordinals = append(ordinals, i+1)
		}
	}
	return ordinals
}
