// Package progress reconciles learner progress held in a remote per-account
// document and a per-device local cache, and derives completion percentages
// and sequential unlock state from the merged result.
package progress

import (
	"encoding/json"
	"sort"
	"time"
)

// TopicCompletionRecord is the remote per-topic progress entry.
// Only Completed decides whether the topic counts as done.
type TopicCompletionRecord struct {
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	QuizScore       *float64   `json:"quizScore,omitempty"`
	CodingCompleted *bool      `json:"codingCompleted,omitempty"`
}

// SectionRecord maps topic keys to their remote records. A nil SectionRecord
// means the remote store holds nothing for the section.
type SectionRecord map[string]TopicCompletionRecord

// CourseRecord maps section IDs to section records.
type CourseRecord map[string]SectionRecord

// Document is the whole remote progress document of one user.
type Document map[string]CourseRecord

// Section returns the record for a course/section, or nil when absent.
func (d Document) Section(courseID, sectionID string) SectionRecord {
	if d == nil {
		return nil
	}
	return d[courseID][sectionID]
}

func (d Document) clone() Document {
	out := make(Document, len(d))
	for courseID, course := range d {
		c := make(CourseRecord, len(course))
		for sectionID, section := range course {
			s := make(SectionRecord, len(section))
			for key, rec := range section {
				s[key] = rec
			}
			c[sectionID] = s
		}
		out[courseID] = c
	}
	return out
}

// KeySet is a set of topic keys.
type KeySet map[string]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts key into the set.
func (s KeySet) Add(key string) { s[key] = struct{}{} }

// Has reports whether key is in the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Len returns the number of keys.
func (s KeySet) Len() int { return len(s) }

// Keys returns the keys in sorted order.
func (s KeySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the set as a sorted array.
func (s KeySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Keys())
}

// UnmarshalJSON decodes a set from an array of strings.
func (s *KeySet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*s = NewKeySet(keys...)
	return nil
}

// ReconciledProgress is derived on demand and never persisted.
type ReconciledProgress struct {
	CompletedTopicKeys KeySet `json:"completedTopicKeys"`
	CompletedCount     int    `json:"completedCount"`
	TotalCount         int    `json:"totalCount"`
	Percent            int    `json:"percent"`
}

// UnlockState classifies a topic for display.
type UnlockState string

const (
	StateLocked    UnlockState = "locked"
	StateAvailable UnlockState = "available"
	StateCompleted UnlockState = "completed"
)
