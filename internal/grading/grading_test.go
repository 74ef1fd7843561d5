package grading

import (
	"reflect"
	"testing"

	"github.com/edustack/assess-backend/internal/model"
	"github.com/google/uuid"
)

var (
	q1 = uuid.New()
	q2 = uuid.New()
	q3 = uuid.New()
)

func bank() []model.Question {
	return []model.Question{
		{ID: q1, OrderIndex: 0, Type: model.QuestionTypeMultipleChoice, Prompt: "a", Options: []string{"A", "B"}, CorrectAnswer: "A", Points: 2},
		{ID: q2, OrderIndex: 1, Type: model.QuestionTypeMultipleChoice, Prompt: "b", Options: []string{"C", "D"}, CorrectAnswer: "D", Points: 3},
	}
}

// Reference scenario: 2 MC questions worth 2 and 3 points, passing 70%,
// first answered correctly, second wrong.
func TestGradePartialScore(t *testing.T) {
	res := Grade(bank(), map[uuid.UUID]string{q1: "A", q2: "C"}, 95, 70)

	if res.Score != 2 {
		t.Errorf("score = %d, want 2", res.Score)
	}
	if res.TotalPoints != 5 {
		t.Errorf("total_points = %d, want 5", res.TotalPoints)
	}
	if res.Percentage != 40.0 {
		t.Errorf("percentage = %v, want 40.0", res.Percentage)
	}
	if res.Passed {
		t.Error("passed = true, want false")
	}
	if res.CorrectAnswers != 1 || res.TotalQuestions != 2 {
		t.Errorf("counts = %d/%d, want 1/2", res.CorrectAnswers, res.TotalQuestions)
	}
	if res.TimeTakenSeconds != 95 {
		t.Errorf("time_taken = %d, want 95", res.TimeTakenSeconds)
	}
}

func TestGradeExactMatchIsCaseSensitive(t *testing.T) {
	res := Grade(bank(), map[uuid.UUID]string{q1: "a", q2: "D "}, 10, 50)
	if res.Score != 0 {
		t.Errorf("score = %d, want 0 (no trimming, no case folding)", res.Score)
	}
}

func TestGradeManualTypesExcludedFromScore(t *testing.T) {
	questions := append(bank(),
		model.Question{ID: q3, OrderIndex: 2, Type: model.QuestionTypeShortAnswer, Prompt: "c", CorrectAnswer: "model answer", Points: 5},
	)
	// Even a verbatim match with the model answer earns nothing automatically.
	res := Grade(questions, map[uuid.UUID]string{q1: "A", q2: "D", q3: "model answer"}, 30, 50)

	if res.Score != 5 {
		t.Errorf("score = %d, want 5 (auto-gradable points only)", res.Score)
	}
	if res.TotalPoints != 10 {
		t.Errorf("total_points = %d, want 10 (manual points still counted)", res.TotalPoints)
	}
	if res.Percentage != 50.0 {
		t.Errorf("percentage = %v, want 50.0", res.Percentage)
	}
	if res.TotalQuestions != 3 {
		t.Errorf("total_questions = %d, want 3", res.TotalQuestions)
	}

	last := res.Answers[2]
	if last.Correct != nil {
		t.Error("manual question must carry nil correctness pending human grading")
	}
	if last.PointsAwarded != 0 {
		t.Errorf("manual question awarded %d points automatically", last.PointsAwarded)
	}
}

func TestGradeUnansweredQuestions(t *testing.T) {
	res := Grade(bank(), nil, 0, 70)
	if res.Score != 0 || res.CorrectAnswers != 0 {
		t.Errorf("empty answers scored %d/%d correct", res.Score, res.CorrectAnswers)
	}
	if len(res.Answers) != 2 {
		t.Errorf("snapshot has %d entries, want one per question", len(res.Answers))
	}
	for _, rec := range res.Answers {
		if rec.Correct == nil || *rec.Correct {
			t.Error("unanswered auto-gradable question must be recorded as incorrect")
		}
	}
}

func TestGradeRoundsHalfUpToOneDecimal(t *testing.T) {
	// 1 of 3 points = 33.33..% rounds down to 33.3; 2 of 3 = 66.66..%
	// rounds up to 66.7.
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	qs := []model.Question{
		{ID: a, Type: model.QuestionTypeTrueFalse, Prompt: "a", CorrectAnswer: "True", Points: 1},
		{ID: b, Type: model.QuestionTypeTrueFalse, Prompt: "b", CorrectAnswer: "True", Points: 1},
		{ID: c, Type: model.QuestionTypeTrueFalse, Prompt: "c", CorrectAnswer: "True", Points: 1},
	}

	res := Grade(qs, map[uuid.UUID]string{a: "True"}, 5, 70)
	if res.Percentage != 33.3 {
		t.Errorf("percentage = %v, want 33.3", res.Percentage)
	}

	res = Grade(qs, map[uuid.UUID]string{a: "True", b: "True"}, 5, 70)
	if res.Percentage != 66.7 {
		t.Errorf("percentage = %v, want 66.7", res.Percentage)
	}
}

func TestGradePassBoundaryInclusive(t *testing.T) {
	res := Grade(bank(), map[uuid.UUID]string{q1: "A", q2: "D"}, 5, 100)
	if !res.Passed {
		t.Error("percentage equal to threshold must pass")
	}
}

func TestGradeDeterministic(t *testing.T) {
	answers := map[uuid.UUID]string{q1: "A", q2: "C"}
	first := Grade(bank(), answers, 42, 70)
	for i := 0; i < 5; i++ {
		again := Grade(bank(), answers, 42, 70)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("grade is not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestGradeEmptyBank(t *testing.T) {
	res := Grade(nil, nil, 0, 70)
	if res.Percentage != 0 || res.Passed {
		t.Errorf("empty bank graded as %v/passed=%v", res.Percentage, res.Passed)
	}
}
