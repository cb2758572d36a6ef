// Package quiz implements the recurring multiply-add trivia round
// described by spec.md §3 ("Quiz") and §4.5 ("Quiz Engine").
//
// Engine is not itself safe for concurrent use — like nickname.Pool, it
// is designed to be called only while the owning room.Room holds its
// single lock.
package quiz

import (
	"fmt"
	"math/rand"
)

const (
	minFactor  = 2
	maxFactor  = 10
	minOffset  = 2
	maxOffset  = 97
	factorSpan = maxFactor - minFactor + 1
	offsetSpan = maxOffset - minOffset + 1
)

// Engine tracks the current question, its answer, and when the next
// question is due.
//
// Grounded on the original ChatRoomPlugin.cpp's Worker() math-question
// block (component ranges, "regenerate until answer differs from the
// previous one" loop) and on Parkreiner-bingo's game/shuffler.go pattern
// of holding a seeded *rand.Rand as an instance field instead of using
// the package-level global RNG.
type Engine struct {
	rng                *rand.Rand
	minCooldown         float64
	maxCooldown         float64
	components          [3]int
	question            string
	answer              string
	answeredCorrectly   bool
	nextQuestionTime    float64
	changed             chan struct{}
}

// NewEngine constructs an Engine. If minCooldown > maxCooldown the two
// are swapped, per spec.md §4.5.
func NewEngine(minCooldown, maxCooldown float64, seed int64) *Engine {
	if minCooldown > maxCooldown {
		minCooldown, maxCooldown = maxCooldown, minCooldown
	}
	return &Engine{
		rng:               rand.New(rand.NewSource(seed)),
		minCooldown:       minCooldown,
		maxCooldown:       maxCooldown,
		answeredCorrectly: true,
		changed:           make(chan struct{}),
	}
}

func (e *Engine) cooldown() float64 {
	if e.maxCooldown == e.minCooldown {
		return e.minCooldown
	}
	return e.minCooldown + e.rng.Float64()*(e.maxCooldown-e.minCooldown)
}

// ScheduleFirst sets the time of the first question, called once when
// the room starts.
func (e *Engine) ScheduleFirst(now float64) {
	e.nextQuestionTime = now
	e.nextQuestionTime += e.cooldown()
}

// Due reports whether a new question should be posted.
func (e *Engine) Due(now float64) bool {
	return now >= e.nextQuestionTime
}

// Next generates a new question whose answer differs from the previous
// one, marks the round open, reschedules the next question, signals any
// room.Room.AwaitNextQuestion waiters, and returns the question text to broadcast. The
// reschedule increments off the previously scheduled time rather than
// off the caller's "now", matching the original's CooldownNextQuestion
// — a late worker wake-up shifts only the question it is late for, not
// every question after it.
func (e *Engine) Next() string {
	lastAnswer := e.answer
	for {
		a := minFactor + e.rng.Intn(factorSpan)
		b := minFactor + e.rng.Intn(factorSpan)
		c := minOffset + e.rng.Intn(offsetSpan)
		answer := fmt.Sprintf("%d", a*b+c)
		if answer == lastAnswer {
			continue
		}
		e.components = [3]int{a, b, c}
		e.question = fmt.Sprintf("What is %d * %d + %d?", a, b, c)
		e.answer = answer
		break
	}
	e.answeredCorrectly = false
	e.nextQuestionTime += e.cooldown()

	close(e.changed)
	e.changed = make(chan struct{})

	return e.question
}

// AnsweredCorrectly reports whether the current round is closed (no
// question pending, or the question has been answered).
func (e *Engine) AnsweredCorrectly() bool { return e.answeredCorrectly }

// Question returns the current question text.
func (e *Engine) Question() string { return e.question }

// Answer returns the decimal text of the current answer.
func (e *Engine) Answer() string { return e.answer }

// Components returns the (a, b, c) that produced the current question.
func (e *Engine) Components() [3]int { return e.components }

// CheckAnswer compares text against the open answer. The caller is
// expected to only call this while AnsweredCorrectly() is false; a
// match closes the round. Only the first matching call for a given
// round returns true.
func (e *Engine) CheckAnswer(text string) bool {
	if e.answeredCorrectly || text != e.answer {
		return false
	}
	e.answeredCorrectly = true
	return true
}

// SetNextAnswer is a test back door (spec.md §4.9, §9): it forces the
// open answer and reopens the round.
func (e *Engine) SetNextAnswer(answer string) {
	e.answer = answer
	e.answeredCorrectly = false
}

// SetAnsweredCorrectly is a test back door that force-closes the round.
func (e *Engine) SetAnsweredCorrectly() {
	e.answeredCorrectly = true
}

// ChangedSignal returns the channel that is closed the next time a new
// question is posted. Callers must re-fetch it after each wait, since a
// fresh channel is installed every time Next is called.
func (e *Engine) ChangedSignal() <-chan struct{} {
	return e.changed
}
