package app

import (
	"fmt"
	"math"
	"sort"

	"live-quiz-service/internal/domain"
)

// DefaultTopPlayers is how many players a report ranks.
const DefaultTopPlayers = 5

const questionTextPreview = 20

// PlayerScore is a player's count of correct answers.
type PlayerScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// QuestionAccuracy is the share of players who answered a question correctly.
type QuestionAccuracy struct {
	QuestionNumber string  `json:"questionNumber"`
	QuestionText   string  `json:"questionText"`
	PercentCorrect float64 `json:"percentCorrect"`
}

// QuestionResponseTime is the mean answer latency of a question in seconds.
type QuestionResponseTime struct {
	QuestionNumber  string  `json:"questionNumber"`
	QuestionText    string  `json:"questionText"`
	AvgResponseTime float64 `json:"avgResponseTime"`
}

// Report summarises a session for the admin dashboard.
type Report struct {
	SessionID     string                 `json:"sessionId"`
	Active        bool                   `json:"active"`
	Players       int                    `json:"players"`
	TopPlayers    []PlayerScore          `json:"topPlayers"`
	Accuracy      []QuestionAccuracy     `json:"accuracy"`
	ResponseTimes []QuestionResponseTime `json:"responseTimes"`
}

// BuildReport aggregates the session's current ledger.
func BuildReport(session *domain.Session, top int) Report {
	results := session.Results()
	return Report{
		SessionID:     session.ID,
		Active:        session.Active,
		Players:       len(results),
		TopPlayers:    TopPlayers(results, top),
		Accuracy:      PerQuestionAccuracy(results, session.Questions),
		ResponseTimes: PerQuestionAvgResponseTime(results, session.Questions),
	}
}

// TopPlayers ranks players by number of correct answers, keeping join order
// on ties, and returns at most n entries.
func TopPlayers(results []domain.PlayerResult, n int) []PlayerScore {
	scores := make([]PlayerScore, 0, len(results))
	for _, r := range results {
		score := 0
		for _, a := range r.Answers {
			if a.Correct {
				score++
			}
		}
		scores = append(scores, PlayerScore{Name: r.Name, Score: score})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	if n >= 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores
}

// PerQuestionAccuracy is correct/total*100 per question, one decimal. Every
// result entry counts toward the total whether or not it answered.
func PerQuestionAccuracy(results []domain.PlayerResult, questions []domain.Question) []QuestionAccuracy {
	out := make([]QuestionAccuracy, 0, len(questions))
	total := len(results)
	for i, q := range questions {
		correct := 0
		for _, r := range results {
			if i < len(r.Answers) && r.Answers[i].Correct {
				correct++
			}
		}
		percent := 0.0
		if total > 0 {
			percent = roundTenth(float64(correct) / float64(total) * 100)
		}
		out = append(out, QuestionAccuracy{
			QuestionNumber: questionNumber(i),
			QuestionText:   preview(q.Text),
			PercentCorrect: percent,
		})
	}
	return out
}

// PerQuestionAvgResponseTime averages answeredAt-questionStartedAt over the
// records that carry both timestamps; 0 when none do.
func PerQuestionAvgResponseTime(results []domain.PlayerResult, questions []domain.Question) []QuestionResponseTime {
	out := make([]QuestionResponseTime, 0, len(questions))
	for i, q := range questions {
		var sum float64
		count := 0
		for _, r := range results {
			if i >= len(r.Answers) {
				continue
			}
			rec := r.Answers[i]
			if rec.QuestionStartedAt == nil || rec.AnsweredAt == nil {
				continue
			}
			sum += rec.AnsweredAt.Sub(*rec.QuestionStartedAt).Seconds()
			count++
		}
		avg := 0.0
		if count > 0 {
			avg = roundTenth(sum / float64(count))
		}
		out = append(out, QuestionResponseTime{
			QuestionNumber:  questionNumber(i),
			QuestionText:    preview(q.Text),
			AvgResponseTime: avg,
		})
	}
	return out
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func questionNumber(i int) string {
	return fmt.Sprintf("Q%d", i+1)
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= questionTextPreview {
		return text
	}
	return string(r[:questionTextPreview]) + "..."
}
