package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/sanskritiar/heritage/internal/domain"
	"github.com/sanskritiar/heritage/internal/errors"
	"github.com/sanskritiar/heritage/internal/rewards"
)

const (
	DefaultBonusCoins = 10
	DefaultDwell      = 3 * time.Second
)

// AfterFunc schedules f after d and returns a cancellation handle. Tests
// inject a fake to drive the auto-advance deterministically.
type AfterFunc func(d time.Duration, f func()) (cancel func())

func realAfter(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

type Config struct {
	SessionID string
	Ledger    *rewards.Ledger
	Questions []domain.Question
	Bonus     int
	Dwell     time.Duration
	After     AfterFunc
}

// Engine cycles one visitor through the question catalog. Each question
// instance accepts exactly one answer; a correct answer credits the ledger
// immediately, and after a fixed dwell the engine advances to the next
// question (wrapping around, forever).
type Engine struct {
	session string
	ledger  *rewards.Ledger
	bonus   int
	dwell   time.Duration
	after   AfterFunc

	mu            sync.Mutex
	questions     []domain.Question
	idx           int
	answered      bool
	lastResult    Result
	gen           uint64
	cancelAdvance func()
}

func NewEngine(c Config) *Engine {
	e := &Engine{
		session:   c.SessionID,
		ledger:    c.Ledger,
		questions: c.Questions,
		bonus:     c.Bonus,
		dwell:     c.Dwell,
		after:     c.After,
	}

	if e.bonus <= 0 {
		e.bonus = DefaultBonusCoins
	}
	if e.dwell <= 0 {
		e.dwell = DefaultDwell
	}
	if e.after == nil {
		e.after = realAfter
	}

	return e
}

// View is the client-safe projection of the current question. The correct
// index is only revealed through a submit result.
type View struct {
	QuestionID   string
	QuestionText string
	Options      []string
	Index        int
	Total        int
	Revealed     bool
}

// Result describes the outcome of an answer submission. Accepted is false
// when the submission was ignored because this question instance was already
// answered; the rest of the fields then echo the original outcome.
type Result struct {
	Accepted     bool
	Correct      bool
	CorrectIndex int
	Fact         string
	CoinsAwarded int
	Balance      int
}

func (e *Engine) Current() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	q := e.questions[e.idx]
	return View{
		QuestionID:   q.QuestionID,
		QuestionText: q.QuestionText,
		Options:      q.Options,
		Index:        e.idx,
		Total:        len(e.questions),
		Revealed:     e.answered,
	}
}

// SubmitAnswer records the visitor's answer for the current question. A
// second call before the dwell elapses is ignored, which is what prevents a
// double credit. A correct answer credits the bonus immediately; the advance
// to the next question is a scheduled transition.
func (e *Engine) SubmitAnswer(ctx context.Context, index int) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q := e.questions[e.idx]
	if index < 0 || index >= len(q.Options) {
		return Result{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("answer index %d out of range for question %s", index, q.QuestionID))
	}

	if e.answered {
		r := e.lastResult
		r.Accepted = false
		return r, nil
	}

	r := Result{
		Accepted:     true,
		Correct:      index == q.CorrectIndex,
		CorrectIndex: q.CorrectIndex,
		Fact:         q.Fact,
	}

	if r.Correct {
		r.CoinsAwarded = e.bonus
		r.Balance = e.ledger.Credit(ctx, e.bonus, "quiz")
	} else {
		r.Balance = e.ledger.Balance()
	}

	e.answered = true
	e.lastResult = r

	e.gen++
	gen := e.gen
	e.cancelAdvance = e.after(e.dwell, func() { e.advance(gen) })

	return r, nil
}

// advance moves to the next question if the reveal that scheduled it is
// still current.
func (e *Engine) advance(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || !e.answered {
		return
	}

	e.idx = (e.idx + 1) % len(e.questions)
	e.answered = false
	e.cancelAdvance = nil
}

// Stop cancels a pending auto-advance. Called when the session is discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancelAdvance != nil {
		e.cancelAdvance()
		e.cancelAdvance = nil
	}
}
