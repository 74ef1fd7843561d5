package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edustack/assess-backend/internal/model"
	"github.com/google/uuid"
)

func testAssessment(durationValue int, unit model.DurationUnit) *model.LiveAssessment {
	return &model.LiveAssessment{
		ID:             uuid.New(),
		Title:          "Networking Post-Test",
		Family:         model.FamilyPostTest,
		DurationValue:  durationValue,
		DurationUnit:   unit,
		PassingPercent: 70,
		Status:         model.LiveStatusActive,
	}
}

func testQuestions() []model.Question {
	return []model.Question{
		{ID: uuid.New(), OrderIndex: 0, Type: model.QuestionTypeMultipleChoice, Prompt: "q1", Options: []string{"A", "B"}, CorrectAnswer: "A", Points: 2},
		{ID: uuid.New(), OrderIndex: 1, Type: model.QuestionTypeMultipleChoice, Prompt: "q2", Options: []string{"C", "D"}, CorrectAnswer: "D", Points: 3},
	}
}

// fakeClock lets tests cross the deadline without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStartFixesDeadline(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(nil)
	e.SetClock(clock.Now)

	a, err := e.Start(7, testAssessment(2, model.DurationHours), testQuestions())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	want := clock.Now().Add(2 * time.Hour)
	if !a.Deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", a.Deadline, want)
	}
}

func TestStartRejectsConcurrentAttempt(t *testing.T) {
	e := NewEngine(nil)
	assessment := testAssessment(10, model.DurationMinutes)

	if _, err := e.Start(7, assessment, testQuestions()); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := e.Start(7, assessment, testQuestions()); !errors.Is(err, ErrAttemptActive) {
		t.Fatalf("second start err = %v, want ErrAttemptActive", err)
	}

	// A different taker, and the same taker on a different assessment,
	// are unaffected.
	if _, err := e.Start(8, assessment, testQuestions()); err != nil {
		t.Fatalf("other taker start: %v", err)
	}
	if _, err := e.Start(7, testAssessment(10, model.DurationMinutes), testQuestions()); err != nil {
		t.Fatalf("other assessment start: %v", err)
	}
}

func TestRecordAnswerBeforeAndAfterDeadline(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(nil)
	e.SetClock(clock.Now)

	qs := testQuestions()
	a, err := e.Start(7, testAssessment(30, model.DurationMinutes), qs)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := e.RecordAnswer(a.ID, qs[0].ID, "A"); err != nil {
		t.Fatalf("record before deadline: %v", err)
	}
	if err := e.RecordAnswer(a.ID, qs[0].ID, "B"); err != nil {
		t.Fatalf("overwrite before deadline: %v", err)
	}
	if got := a.AnswersCopy()[qs[0].ID]; got != "B" {
		t.Errorf("last write should win, got %q", got)
	}

	clock.Advance(30 * time.Minute)
	if err := e.RecordAnswer(a.ID, qs[1].ID, "C"); !errors.Is(err, ErrAttemptExpired) {
		t.Fatalf("record at deadline err = %v, want ErrAttemptExpired", err)
	}
}

func TestRecordAnswerUnknownQuestion(t *testing.T) {
	e := NewEngine(nil)
	a, _ := e.Start(7, testAssessment(30, model.DurationMinutes), testQuestions())
	if err := e.RecordAnswer(a.ID, uuid.New(), "A"); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	finalized := 0
	e := NewEngine(func(a *Attempt, trigger Trigger, res *model.Result) { finalized++ })

	qs := testQuestions()
	a, _ := e.Start(7, testAssessment(30, model.DurationMinutes), qs)
	_ = e.RecordAnswer(a.ID, qs[0].ID, "A")

	first, err := e.Submit(a.ID, TriggerManual)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := e.Submit(a.ID, TriggerTimeout)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.ID != second.ID {
		t.Error("second submit must return the already-computed result")
	}
	if finalized != 1 {
		t.Errorf("finalize fired %d times, want exactly 1", finalized)
	}
	if err := e.RecordAnswer(a.ID, qs[0].ID, "B"); !errors.Is(err, ErrAttemptExpired) {
		t.Fatalf("record after submit err = %v, want ErrAttemptExpired", err)
	}
}

func TestSubmitRaceProducesOneResult(t *testing.T) {
	var mu sync.Mutex
	results := make([]*model.Result, 0, 2)
	e := NewEngine(func(a *Attempt, trigger Trigger, res *model.Result) {
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	})

	qs := testQuestions()
	a, _ := e.Start(7, testAssessment(30, model.DurationMinutes), qs)
	_ = e.RecordAnswer(a.ID, qs[0].ID, "A")

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 2)
	for i, trigger := range []Trigger{TriggerManual, TriggerTimeout} {
		wg.Add(1)
		go func(i int, trigger Trigger) {
			defer wg.Done()
			res, err := e.Submit(a.ID, trigger)
			if err != nil {
				t.Errorf("submit %s: %v", trigger, err)
				return
			}
			ids[i] = res.ID
		}(i, trigger)
	}
	wg.Wait()

	if len(results) != 1 {
		t.Fatalf("finalize delivered %d results, want exactly 1", len(results))
	}
	if ids[0] != ids[1] {
		t.Error("racing submits returned different results")
	}
}

func TestTimeoutSubmitsPartialAnswers(t *testing.T) {
	done := make(chan *model.Result, 1)
	var trig Trigger
	e := NewEngine(func(a *Attempt, trigger Trigger, res *model.Result) {
		trig = trigger
		done <- res
	})

	assessment := testAssessment(1, model.DurationMinutes)
	// Shrink the time box so the timer fires quickly under test.
	assessment.DurationValue = 0
	qs := testQuestions()
	a, err := e.Start(7, assessment, qs)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = a

	select {
	case res := <-done:
		if trig != TriggerTimeout {
			t.Errorf("trigger = %s, want timeout", trig)
		}
		if res.TotalQuestions != 2 {
			t.Errorf("timeout result covers %d questions, want 2", res.TotalQuestions)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout submit never fired")
	}
}

func TestManualSubmitsRacingTimeoutTimer(t *testing.T) {
	done := make(chan *model.Result, 2)
	e := NewEngine(func(a *Attempt, trigger Trigger, res *model.Result) {
		done <- res
	})

	// A zero time box fires the timeout timer as soon as the attempt
	// starts, so these submits contend with the timer goroutine from the
	// first instruction.
	assessment := testAssessment(1, model.DurationMinutes)
	assessment.DurationValue = 0
	a, err := e.Start(7, assessment, testQuestions())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	resultIDs := make([]uuid.UUID, 20)
	for i := range resultIDs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Submit(a.ID, TriggerManual)
			if err != nil {
				t.Errorf("submit %d: %v", i, err)
				return
			}
			resultIDs[i] = res.ID
		}(i)
	}
	wg.Wait()

	var final *model.Result
	select {
	case final = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("finalize never fired")
	}
	select {
	case <-done:
		t.Fatal("finalize delivered a second result")
	default:
	}

	if resultIDs[0] != final.ID {
		t.Fatal("submit returned a result the finalize hook never saw")
	}
	for i := 1; i < len(resultIDs); i++ {
		if resultIDs[i] != resultIDs[0] {
			t.Fatalf("submit %d returned a different result id", i)
		}
	}
}

func TestRetakeAllowedAfterSubmit(t *testing.T) {
	e := NewEngine(nil)
	assessment := testAssessment(30, model.DurationMinutes)

	a, _ := e.Start(7, assessment, testQuestions())
	if _, err := e.Submit(a.ID, TriggerManual); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := e.Start(7, assessment, testQuestions()); err != nil {
		t.Fatalf("retake after submit: %v", err)
	}
}

func TestTimeTakenCappedAtDeadline(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(nil)
	e.SetClock(clock.Now)

	a, _ := e.Start(7, testAssessment(1, model.DurationMinutes), testQuestions())
	clock.Advance(5 * time.Minute)

	res, err := e.Submit(a.ID, TriggerTimeout)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.TimeTakenSeconds != 60 {
		t.Errorf("time_taken = %ds, want 60 (capped at the deadline)", res.TimeTakenSeconds)
	}
	if !res.CompletedAt.Equal(a.Deadline) {
		t.Errorf("completed_at = %v, want deadline %v", res.CompletedAt, a.Deadline)
	}
}
