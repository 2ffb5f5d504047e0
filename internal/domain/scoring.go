package domain

// IsCorrect reports whether submitted fully answers q. Multiple choice is all
// or nothing: a subset or superset of the correct set is wrong.
func IsCorrect(q Question, submitted []ID) bool {
	if len(submitted) == 0 {
		return false
	}
	correct := newIDSet(q.CorrectAnswers)

	switch q.Type {
	case QuestionSingle, QuestionJudgement:
		chosen := dedupe(submitted)
		return len(chosen) == 1 && correct.has(chosen[0])
	case QuestionMultiple:
		chosen := newIDSet(submitted)
		if len(chosen) != len(correct) {
			return false
		}
		for id := range chosen {
			if !correct.has(id) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Score returns the points awarded for submitted.
func Score(q Question, submitted []ID) int {
	if IsCorrect(q, submitted) {
		return q.Points
	}
	return 0
}
