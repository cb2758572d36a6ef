package quiz

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_NextProducesDistinctAnswers(t *testing.T) {
	e := NewEngine(10, 30, 1)
	e.ScheduleFirst(0)

	q1 := e.Next()
	a1 := e.Answer()
	q2 := e.Next()
	a2 := e.Answer()

	assert.NotEmpty(t, q1)
	assert.NotEmpty(t, q2)
	assert.NotEqual(t, a1, a2, "consecutive questions must never share an answer")
}

func TestEngine_NextAnswerIsWithinRange(t *testing.T) {
	e := NewEngine(10, 30, 42)
	e.ScheduleFirst(0)
	e.Next()

	c := e.Components()
	assert.GreaterOrEqual(t, c[0], 2)
	assert.LessOrEqual(t, c[0], 10)
	assert.GreaterOrEqual(t, c[1], 2)
	assert.LessOrEqual(t, c[1], 10)
	assert.GreaterOrEqual(t, c[2], 2)
	assert.LessOrEqual(t, c[2], 97)

	n, err := strconv.Atoi(e.Answer())
	require.NoError(t, err)
	assert.Equal(t, c[0]*c[1]+c[2], n)
}

func TestEngine_CooldownSwapsWhenMinExceedsMax(t *testing.T) {
	e := NewEngine(30, 10, 1)
	assert.Equal(t, 10.0, e.minCooldown)
	assert.Equal(t, 30.0, e.maxCooldown)
}

func TestEngine_CheckAnswerOnlyFirstCorrectWins(t *testing.T) {
	e := NewEngine(10, 30, 7)
	e.SetNextAnswer("42")

	assert.True(t, e.CheckAnswer("42"))
	assert.True(t, e.AnsweredCorrectly())
	assert.False(t, e.CheckAnswer("42"), "a closed round must not accept a second correct answer")

	e.SetNextAnswer("42")
	assert.False(t, e.CheckAnswer("41"))
	assert.False(t, e.AnsweredCorrectly())
}

func TestEngine_DueRespectsSchedule(t *testing.T) {
	e := NewEngine(10, 10, 1)
	e.ScheduleFirst(0)
	assert.False(t, e.Due(5))
	assert.True(t, e.Due(10))
}

func TestEngine_RescheduleIncrementsFromPriorScheduleNotNow(t *testing.T) {
	e := NewEngine(10, 10, 1)
	e.ScheduleFirst(0)
	require.True(t, e.Due(50), "a worker woken late must still see the question as due")

	e.Next()

	assert.Equal(t, 20.0, e.nextQuestionTime,
		"reschedule must add the cooldown to the prior schedule (10+10), not to the late now (50+10)")
}
