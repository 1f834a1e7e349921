package gamification

// QuestionSnapshot is the scoring view of one quiz question.
type QuestionSnapshot struct {
	CorrectIndex int
	Points       int
}

type ScoreResult struct {
	Score    int
	MaxScore int
	Correct  []bool
}

// Score aligns answers to questions by position. A missing or out-of-range
// answer is incorrect, never an error. Negative point values count as zero.
func Score(questions []QuestionSnapshot, answers []int) ScoreResult {
	out := ScoreResult{Correct: make([]bool, len(questions))}
	for i, q := range questions {
		pts := q.Points
		if pts < 0 {
			pts = 0
		}
		out.MaxScore += pts
		if i >= len(answers) {
			continue
		}
		if answers[i] >= 0 && answers[i] == q.CorrectIndex {
			out.Correct[i] = true
			out.Score += pts
		}
	}
	return out
}
