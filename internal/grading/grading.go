// Package grading turns a finalized answer set into a Result. It is a pure
// function of its inputs: no I/O, no clock, no randomness, so a stored
// answers snapshot can always be replayed to the identical Result.
package grading

import (
	"math"

	"github.com/edustack/assess-backend/internal/model"
	"github.com/google/uuid"
)

// Grade scores a finalized answer set against a question bank.
//
// Auto-gradable questions (multiple_choice, true_false) are matched by
// exact, case-sensitive string comparison. Manual types contribute their
// points to the total and their count to total_questions, but never to the
// automatic score; their Correct field stays nil pending a human pass.
func Grade(questions []model.Question, answers map[uuid.UUID]string, timeTakenSeconds int, passingPercent float64) model.Result {
	res := model.Result{
		TimeTakenSeconds: timeTakenSeconds,
		Answers:          make([]model.AnswerRecord, 0, len(questions)),
	}

	for _, q := range questions {
		answer := answers[q.ID]
		rec := model.AnswerRecord{QuestionID: q.ID, Answer: answer}

		res.TotalQuestions++
		res.TotalPoints += q.Points

		if q.Type.AutoGradable() {
			correct := answer == q.CorrectAnswer
			rec.Correct = &correct
			if correct {
				rec.PointsAwarded = q.Points
				res.Score += q.Points
				res.CorrectAnswers++
			}
		}

		res.Answers = append(res.Answers, rec)
	}

	if res.TotalPoints > 0 {
		res.Percentage = round1(float64(res.Score) / float64(res.TotalPoints) * 100)
	}
	res.Passed = res.Percentage >= passingPercent

	return res
}

// round1 rounds to one decimal place, half up.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
