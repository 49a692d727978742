package progress

import "github.com/p-n-ai/pai-progress/internal/curriculum"

// ReconcileSection returns the union of topic keys completed according to the
// remote record and the local ordinal cache. A nil remote or local means that
// source is absent; malformed local content is treated as absent.
func ReconcileSection(remote SectionRecord, local []byte, topics []curriculum.Topic) KeySet {
	keys := make(KeySet)

	for key, rec := range remote {
		if rec.Completed {
			keys.Add(key)
		}
	}

	for key := range OrdinalsToKeys(DecodeOrdinals(local), topics) {
		keys.Add(key)
	}

	return keys
}

// ComputePercent derives counts and a round-half-up percentage.
func ComputePercent(keys KeySet, totalTopics int) ReconciledProgress {
	if keys == nil {
		keys = make(KeySet)
	}
	if totalTopics < 0 {
		totalTopics = 0
	}

	p := ReconciledProgress{
		CompletedTopicKeys: keys,
		CompletedCount:     keys.Len(),
		TotalCount:         totalTopics,
	}
	if totalTopics > 0 {
		// Remote records for topics since removed from the catalog can push
		// the count past the total.
		p.Percent = min(roundHalfUp(100*p.CompletedCount, totalTopics), 100)
	}
	return p
}

// AggregatePercent is the unweighted mean of per-course percentages, not a
// pooled completed-over-total count.
func AggregatePercent(percents []int) int {
	if len(percents) == 0 {
		return 0
	}
	sum := 0
	for _, p := range percents {
		sum += p
	}
	return roundHalfUp(sum, len(percents))
}

// ReconcileCourse reconciles every section of a course. Keys in the result are
// qualified as "sectionID/topicKey". local is keyed by section ID.
func ReconcileCourse(course curriculum.Course, remote CourseRecord, local map[string][]byte) ReconciledProgress {
	keys := make(KeySet)
	for _, s := range course.Sections {
		for key := range ReconcileSection(remote[s.ID], local[s.ID], s.Topics) {
			keys.Add(s.ID + "/" + key)
		}
	}
	return ComputePercent(keys, course.TopicCount())
}

func roundHalfUp(num, den int) int {
	return (2*num + den) / (2 * den)
}
