package survey

// MinResponsesForComments is the anonymity threshold: free-text comments and
// AI summaries for a (campaign, team leader) pair are withheld until at least
// this many responses exist. It applies to every caller, admins included.
const MinResponsesForComments = 3

// CommentsVisible reports whether free-text comments may be exposed for a
// pair with the given response count.
func CommentsVisible(responses int64) bool {
	return responses >= MinResponsesForComments
}

// ValidRatings filters a submitted rating map down to entries with a known
// question id and an in-range value (1-5). Everything else is dropped.
func (qs QuestionSet) ValidRatings(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for id, v := range in {
		if v >= 1 && v <= 5 && qs.Has(id) {
			out[id] = v
		}
	}
	return out
}

// MeanRatings returns the arithmetic mean of a rating map. The second return
// is false when the map is empty.
func MeanRatings(ratings map[string]int) (float64, bool) {
	if len(ratings) == 0 {
		return 0, false
	}
	sum := 0
	for _, v := range ratings {
		sum += v
	}
	return float64(sum) / float64(len(ratings)), true
}

// QuestionAverages computes the per-question mean across responses. A nil
// entry means no response rated that question. Out-of-range and unknown
// entries in stored maps are ignored defensively; submissions are sanitized
// on the way in, but older rows may predate the current question set.
func (qs QuestionSet) QuestionAverages(responses []map[string]int) map[string]*float64 {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, ratings := range responses {
		for id, v := range ratings {
			if v < 1 || v > 5 || !qs.Has(id) {
				continue
			}
			sums[id] += v
			counts[id]++
		}
	}

	out := make(map[string]*float64, len(qs.Questions))
	for _, q := range qs.Questions {
		if n := counts[q.ID]; n > 0 {
			avg := float64(sums[q.ID]) / float64(n)
			out[q.ID] = &avg
		} else {
			out[q.ID] = nil
		}
	}
	return out
}

// CategoryAverages folds per-question averages into per-category averages:
// the mean of the member questions that have data. A category with no data
// at all stays nil.
func (qs QuestionSet) CategoryAverages(questionAvgs map[string]*float64) map[string]*float64 {
	out := make(map[string]*float64)
	for category, ids := range qs.QuestionIDsByCategory() {
		sum := 0.0
		n := 0
		for _, id := range ids {
			if avg := questionAvgs[id]; avg != nil {
				sum += *avg
				n++
			}
		}
		if n > 0 {
			avg := sum / float64(n)
			out[category] = &avg
		} else {
			out[category] = nil
		}
	}
	return out
}

// Deltas computes to-minus-from for matching keys. A delta is nil whenever
// either side lacks data, never zero by fabrication.
func Deltas(from, to map[string]*float64) map[string]*float64 {
	out := make(map[string]*float64, len(to))
	for key, toVal := range to {
		fromVal := from[key]
		if toVal == nil || fromVal == nil {
			out[key] = nil
			continue
		}
		d := *toVal - *fromVal
		out[key] = &d
	}
	return out
}

// Delta is the scalar counterpart of Deltas, for the overall score.
func Delta(from, to *float64) *float64 {
	if from == nil || to == nil {
		return nil
	}
	d := *to - *from
	return &d
}
