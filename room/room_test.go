package room

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dragonfox-chatroom/diagnostics"
	"dragonfox-chatroom/domain"
	"dragonfox-chatroom/timekeeper"
)

// fakeConn is an in-memory domain.Connection recording every sent
// message, for assertions against the wire protocol.
type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.sent = append(c.sent, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages(t *testing.T) []domain.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, 0, len(c.sent))
	for _, data := range c.sent {
		var msg domain.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		out = append(out, msg)
	}
	return out
}

func (c *fakeConn) last(t *testing.T) domain.Message {
	t.Helper()
	msgs := c.messages(t)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func newTestRoom(clock domain.TimeSource, names []string) *Room {
	return New(Config{
		NickNames:   names,
		TellTimeout: 1.0,
		MinCoolDown: 1000,
		MaxCoolDown: 1000,
		Seed:        1,
		Clock:       clock,
		Diagnostics: diagnostics.New(nil),
	})
}

func admitFake(t *testing.T, r *Room) (*domain.Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	session, err := r.Admit(func() (domain.Connection, error) { return conn, nil })
	require.NoError(t, err)
	return session, conn
}

func TestRoom_GetAvailableNickNamesRepliesOnlyToRequester(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice", "Bob"})

	_, askerConn := admitFake(t, r)
	_, otherConn := admitFake(t, r)

	r.HandleText(1, []byte(`{"Type":"GetAvailableNickNames"}`))

	last := askerConn.last(t)
	assert.Equal(t, "AvailableNickNames", last.Type)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, last.AvailableNickNames)

	assert.Empty(t, otherConn.sent, "GetAvailableNickNames must not broadcast")
}

func TestRoom_SetNickNameFirstClaimBroadcastsJoin(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})

	_, conn1 := admitFake(t, r)
	_, conn2 := admitFake(t, r)

	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))

	result := conn1.last(t)
	require.Equal(t, "SetNickNameResult", result.Type)
	require.NotNil(t, result.Success)
	assert.True(t, *result.Success)

	join := conn2.last(t)
	assert.Equal(t, "Join", join.Type)
	assert.Equal(t, "Alice", join.NickName)
}

func TestRoom_SetNickNameUnknownNameFails(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, conn := admitFake(t, r)

	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Ghost"}`))

	result := conn.last(t)
	require.NotNil(t, result.Success)
	assert.False(t, *result.Success)
}

func TestRoom_SetNickNameAlreadyClaimedFails(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, _ = admitFake(t, r)
	_, conn2 := admitFake(t, r)

	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))
	r.HandleText(2, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))

	result := conn2.last(t)
	require.NotNil(t, result.Success)
	assert.False(t, *result.Success)
}

func TestRoom_SetNickNameSwapReleasesOldName(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice", "Bob"})
	_, conn1 := admitFake(t, r)

	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))
	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Bob"}`))

	msgs := conn1.messages(t)
	var sawLeaveAlice, sawJoinBob bool
	for _, m := range msgs {
		if m.Type == "Leave" && m.NickName == "Alice" {
			sawLeaveAlice = true
		}
		if m.Type == "Join" && m.NickName == "Bob" {
			sawJoinBob = true
		}
	}
	assert.True(t, sawLeaveAlice)
	assert.True(t, sawJoinBob)

	_, conn2 := admitFake(t, r)
	r.HandleText(2, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))
	result := conn2.last(t)
	require.NotNil(t, result.Success)
	assert.True(t, *result.Success, "released name must be reclaimable")
}

func TestRoom_LurkerTellIsIgnored(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, conn := admitFake(t, r)

	r.HandleText(1, []byte(`{"Type":"Tell","Tell":"hello"}`))
	assert.Empty(t, conn.sent, "a session with no nickname is a lurker and must never Tell")
}

func TestRoom_TellBroadcastsAndRespectsCooldown(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, _ = admitFake(t, r)
	_, conn2 := admitFake(t, r)
	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))

	r.HandleText(1, []byte(`{"Type":"Tell","Tell":"1"}`))
	tell := conn2.last(t)
	assert.Equal(t, "Tell", tell.Type)
	assert.Equal(t, "Alice", tell.Sender)
	assert.Equal(t, "1", tell.Tell)

	before := len(conn2.messages(t))
	r.HandleText(1, []byte(`{"Type":"Tell","Tell":"2"}`))
	assert.Len(t, conn2.messages(t), before, "a Tell within the cooldown window must be dropped")

	clock.Advance(1.0)
	r.HandleText(1, []byte(`{"Type":"Tell","Tell":"2"}`))
	assert.Len(t, conn2.messages(t), before+1, "a Tell after the cooldown elapses must go through")
}

func TestRoom_TellRejectsNonIntegerText(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, conn1 := admitFake(t, r)
	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))

	before := len(conn1.messages(t))
	r.HandleText(1, []byte(`{"Type":"Tell","Tell":"not-a-number"}`))
	assert.Len(t, conn1.messages(t), before, "non-integer Tell text must be rejected")
}

func TestRoom_CorrectAnswerAwardsPoints(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, conn1 := admitFake(t, r)
	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))

	r.Start()
	defer r.Stop()
	r.SetNextAnswer("99")

	r.HandleText(1, []byte(`{"Type":"Tell","Tell":"99"}`))

	var award domain.Message
	require.Eventually(t, func() bool {
		for _, m := range conn1.messages(t) {
			if m.Type == "Award" {
				award = m
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	assert.Equal(t, "Alice", award.Subject)
	assert.Equal(t, 1, award.Award)
	assert.Equal(t, 1, award.Points)
}

func TestRoom_IncorrectAnswerPenalizes(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, conn1 := admitFake(t, r)
	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))

	r.Start()
	defer r.Stop()
	r.SetNextAnswer("99")

	r.HandleText(1, []byte(`{"Type":"Tell","Tell":"1"}`))

	var penalty domain.Message
	require.Eventually(t, func() bool {
		for _, m := range conn1.messages(t) {
			if m.Type == "Penalty" {
				penalty = m
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	assert.Equal(t, "Alice", penalty.Subject)
	assert.Equal(t, 1, penalty.Penalty)
	assert.Equal(t, -1, penalty.Points)
}

func TestRoom_ClosedSessionIsReapedAndNameReleased(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, conn1 := admitFake(t, r)
	_, conn2 := admitFake(t, r)
	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))

	r.Start()
	defer r.Stop()

	r.HandleClose(1)

	require.Eventually(t, func() bool {
		for _, m := range conn2.messages(t) {
			if m.Type == "Leave" && m.NickName == "Alice" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	_, conn3 := admitFake(t, r)
	r.HandleText(3, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))
	result := conn3.last(t)
	require.NotNil(t, result.Success)
	assert.True(t, *result.Success, "reaping a closed session must release its nickname")

	require.Eventually(t, func() bool { return conn1.closed }, time.Second, time.Millisecond)
}

func TestRoom_GetNickNamesAndGetUsersExcludeLurkers(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice", "Bob"})
	_, _ = admitFake(t, r)
	_, connLurker := admitFake(t, r)
	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))

	r.HandleText(2, []byte(`{"Type":"GetNickNames"}`))
	names := connLurker.last(t)
	assert.Equal(t, []string{"Alice"}, names.NickNames)

	r.HandleText(2, []byte(`{"Type":"GetUsers"}`))
	users := connLurker.last(t)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "Alice", users.Users[0].Nickname)
}

func TestRoom_AwaitNextQuestionReturnsImmediatelyWhenAnswered(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	r.SetAnsweredCorrectly()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	r.AwaitNextQuestion(ctx)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRoom_UnknownMessageTypeIsSilentlyDropped(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, conn := admitFake(t, r)

	r.HandleText(1, []byte(`{"Type":"SomethingUnrecognized"}`))
	assert.Empty(t, conn.sent)
}

func TestRoom_MalformedJSONIsSilentlyDropped(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice"})
	_, conn := admitFake(t, r)

	r.HandleText(1, []byte(`{not-json`))
	assert.Empty(t, conn.sent)
}

func TestRoom_Stats(t *testing.T) {
	clock := timekeeper.NewFake()
	r := newTestRoom(clock, []string{"Alice", "Bob"})
	_, _ = admitFake(t, r)
	_, _ = admitFake(t, r)
	r.HandleText(1, []byte(`{"Type":"SetNickName","NickName":"Alice"}`))

	sessions, claimed := r.Stats()
	assert.Equal(t, 2, sessions)
	assert.Equal(t, 1, claimed)
}
