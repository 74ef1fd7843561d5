// Package session manages timed test-taking attempts in memory. An attempt
// moves not_started → in_progress → submitted; the deadline is fixed at
// start, enforced with the server clock, and always resolves to a submit
// via a per-attempt timer. Attempts are transient: once an attempt is
// finalized into a Result it is handed to the finalize hook and discarded.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/edustack/assess-backend/internal/grading"
	"github.com/edustack/assess-backend/internal/model"
	"github.com/google/uuid"
)

// Domain errors surfaced to the transport layer.
var (
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrAttemptActive   = errors.New("an unsubmitted attempt already exists for this assessment")
	ErrAttemptExpired  = errors.New("attempt deadline has passed")
	ErrUnknownQuestion = errors.New("question does not belong to this attempt")
)

// Trigger identifies which side of the deadline race finalized an attempt.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "timeout"
)

// Attempt is one taker's in-progress pass through an assessment. All
// mutable fields are guarded by mu; the identity and deadline fields are
// immutable after Start.
type Attempt struct {
	ID           uuid.UUID
	TakerID      int
	AssessmentID uuid.UUID
	StartedAt    time.Time
	Deadline     time.Time

	questions      []model.Question
	passingPercent float64

	mu        sync.Mutex
	answers   map[uuid.UUID]string
	submitted bool
	result    *model.Result
	timer     *time.Timer
}

// AnswersCopy returns a snapshot of the recorded answers.
func (a *Attempt) AnswersCopy() map[uuid.UUID]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[uuid.UUID]string, len(a.answers))
	for k, v := range a.answers {
		out[k] = v
	}
	return out
}

// Submitted reports whether the attempt has been finalized.
func (a *Attempt) Submitted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submitted
}

// FinalizeFunc receives every finalized attempt exactly once, with the
// Result produced by the grading engine.
type FinalizeFunc func(a *Attempt, trigger Trigger, res *model.Result)

type attemptKey struct {
	takerID      int
	assessmentID uuid.UUID
}

// Engine is the attempt registry. Operations on different attempts never
// block each other; operations on the same attempt are serialized by the
// attempt's own lock.
type Engine struct {
	mu     sync.RWMutex
	active map[attemptKey]*Attempt
	byID   map[uuid.UUID]*Attempt

	now        func() time.Time
	onFinalize FinalizeFunc

	// retention keeps finalized attempts resolvable by id long enough for
	// the loser of a manual/timeout submit race to read the Result.
	retention time.Duration
}

// NewEngine creates an Engine delivering finalized attempts to onFinalize.
// onFinalize may be nil.
func NewEngine(onFinalize FinalizeFunc) *Engine {
	return &Engine{
		active:     make(map[attemptKey]*Attempt),
		byID:       make(map[uuid.UUID]*Attempt),
		now:        time.Now,
		onFinalize: onFinalize,
		retention:  time.Minute,
	}
}

// SetClock overrides the engine clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Start opens an attempt for (taker, assessment). The deadline is captured
// once and never recomputed; a timeout submit is armed immediately.
// Fails with ErrAttemptActive while an unsubmitted attempt exists for the
// same pair.
func (e *Engine) Start(takerID int, assessment *model.LiveAssessment, questions []model.Question) (*Attempt, error) {
	key := attemptKey{takerID: takerID, assessmentID: assessment.ID}
	now := e.now()

	e.mu.Lock()
	if existing, ok := e.active[key]; ok && !existing.Submitted() {
		e.mu.Unlock()
		return nil, ErrAttemptActive
	}

	a := &Attempt{
		ID:             uuid.New(),
		TakerID:        takerID,
		AssessmentID:   assessment.ID,
		StartedAt:      now,
		Deadline:       now.Add(assessment.Duration()),
		questions:      questions,
		passingPercent: assessment.PassingPercent,
		answers:        make(map[uuid.UUID]string, len(questions)),
	}
	// The timer is armed before the attempt is published so no Submit can
	// observe a half-initialized attempt; the callback holds the attempt
	// directly rather than resolving it by id, so a deadline shorter than
	// the publish window still lands on the right attempt.
	a.timer = time.AfterFunc(a.Deadline.Sub(now), func() {
		_, _ = e.submit(a, TriggerTimeout)
	})
	e.active[key] = a
	e.byID[a.ID] = a
	e.mu.Unlock()

	return a, nil
}

// Get resolves an attempt by id.
func (e *Engine) Get(attemptID uuid.UUID) (*Attempt, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.byID[attemptID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// GetActive resolves the unsubmitted attempt for (taker, assessment).
func (e *Engine) GetActive(takerID int, assessmentID uuid.UUID) (*Attempt, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.active[attemptKey{takerID: takerID, assessmentID: assessmentID}]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// RecordAnswer stores one answer, last-write-wins. Fails with
// ErrAttemptExpired at or past the deadline, or once submitted; the armed
// timeout timer guarantees an expired attempt resolves to a submit rather
// than a dead end.
func (e *Engine) RecordAnswer(attemptID, questionID uuid.UUID, value string) error {
	a, err := e.Get(attemptID)
	if err != nil {
		return err
	}

	known := false
	for i := range a.questions {
		if a.questions[i].ID == questionID {
			known = true
			break
		}
	}
	if !known {
		return ErrUnknownQuestion
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.submitted || !e.now().Before(a.Deadline) {
		return ErrAttemptExpired
	}
	a.answers[questionID] = value
	return nil
}

// Submit finalizes an attempt exactly once and returns its Result. Racing
// submits are serialized by the attempt lock: the loser is a no-op that
// returns the Result the winner computed.
func (e *Engine) Submit(attemptID uuid.UUID, trigger Trigger) (*model.Result, error) {
	a, err := e.Get(attemptID)
	if err != nil {
		return nil, err
	}
	return e.submit(a, trigger)
}

func (e *Engine) submit(a *Attempt, trigger Trigger) (*model.Result, error) {
	a.mu.Lock()
	if a.submitted {
		res := a.result
		a.mu.Unlock()
		return res, nil
	}
	a.submitted = true
	if a.timer != nil {
		a.timer.Stop()
	}

	answers := make(map[uuid.UUID]string, len(a.answers))
	for k, v := range a.answers {
		answers[k] = v
	}
	completedAt := e.now()
	if completedAt.After(a.Deadline) {
		completedAt = a.Deadline
	}
	timeTaken := int(completedAt.Sub(a.StartedAt) / time.Second)

	res := grading.Grade(a.questions, answers, timeTaken, a.passingPercent)
	res.ID = uuid.New()
	res.TakerID = a.TakerID
	res.AssessmentID = a.AssessmentID
	res.StartedAt = a.StartedAt
	res.CompletedAt = completedAt
	a.result = &res
	a.mu.Unlock()

	e.retire(a)

	if e.onFinalize != nil {
		e.onFinalize(a, trigger, &res)
	}
	return &res, nil
}

// Remaining returns the time left before the deadline, floored at zero.
func (e *Engine) Remaining(a *Attempt) time.Duration {
	left := a.Deadline.Sub(e.now())
	if left < 0 {
		left = 0
	}
	return left
}

// retire frees the (taker, assessment) slot so a retake can start, and
// schedules removal of the id entry after the retention window.
func (e *Engine) retire(a *Attempt) {
	key := attemptKey{takerID: a.TakerID, assessmentID: a.AssessmentID}

	e.mu.Lock()
	if e.active[key] == a {
		delete(e.active, key)
	}
	e.mu.Unlock()

	time.AfterFunc(e.retention, func() {
		e.mu.Lock()
		delete(e.byID, a.ID)
		e.mu.Unlock()
	})
}
