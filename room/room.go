// Package room implements the Room Controller (spec.md §4.8, C9): it
// owns the session map and nickname pool, serializes every mutation
// behind a single lock, and runs the background worker that drives the
// quiz scheduler (C7) and the reaper (C8).
//
// Grounded on the teacher's hub/hub.go (room-keyed client map under a
// mutex, register/unregister/broadcast shape) generalized from "many
// named rooms" to "the one room's sessions keyed by session id", and on
// the original ChatRoomPlugin.cpp's Room struct (worker thread,
// usersHaveClosed flag, SendToUser/SendToAll, snapshot-then-unlock
// destruction discipline).
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"dragonfox-chatroom/diagnostics"
	"dragonfox-chatroom/domain"
	"dragonfox-chatroom/nickname"
	"dragonfox-chatroom/quiz"
)

// workerPollInterval bounds the latency of quiz publication and session
// cleanup, per spec.md §4.5/§5.
const workerPollInterval = 50 * time.Millisecond

// Config configures a new Room. Clock and Diagnostics are required
// collaborators; the rest mirror spec.md §6's configuration surface.
type Config struct {
	NickNames     []string
	InitialPoints map[string]int
	TellTimeout   float64
	MinCoolDown   float64
	MaxCoolDown   float64
	Seed          int64
	Clock         domain.TimeSource
	Diagnostics   *diagnostics.Sink
}

// Room is the process-wide (per plugin Load) singleton described by
// spec.md §3: session map, nickname pool, quiz, configured timings, and
// injected collaborators.
type Room struct {
	mu sync.Mutex

	sessions      map[uint64]*domain.Session
	nextSessionID uint64

	pool          *nickname.Pool
	initialPoints map[string]int
	tellTimeout   float64
	quiz          *quiz.Engine

	usersHaveClosed bool

	clock domain.TimeSource
	diag  *diagnostics.Sink

	started bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// New constructs a Room from cfg. It does not start the worker; call
// Start for that.
func New(cfg Config) *Room {
	initialPoints := cfg.InitialPoints
	if initialPoints == nil {
		initialPoints = map[string]int{}
	}
	return &Room{
		sessions:      make(map[uint64]*domain.Session),
		nextSessionID: 1,
		pool:          nickname.New(cfg.NickNames),
		initialPoints: initialPoints,
		tellTimeout:   cfg.TellTimeout,
		quiz:          quiz.NewEngine(cfg.MinCoolDown, cfg.MaxCoolDown, cfg.Seed),
		clock:         cfg.Clock,
		diag:          cfg.Diagnostics,
		wake:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start seeds the quiz schedule and launches the background worker, per
// spec.md §4.8. Calling Start more than once is a no-op.
func (r *Room) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.quiz.ScheduleFirst(r.clock.Now())
	r.mu.Unlock()

	go r.worker()
}

// Stop signals the worker to exit and waits for it, per spec.md §4.8.
func (r *Room) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.mu.Unlock()

	close(r.stop)
	<-r.done
}

func (r *Room) worker() {
	ticker := time.NewTicker(workerPollInterval)
	defer ticker.Stop()
	defer close(r.done)

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		case <-r.wake:
		}
		r.tick()
	}
}

func (r *Room) notifyWorker() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// tick runs one round of reaping and quiz scheduling, per spec.md §4.5,
// §4.6, §4.7. Destruction of reaped session handles happens after the
// lock is released, per spec.md §4.6 step 2 / §9's "destruction
// discipline" design note — synchronous Close()/unsubscribe calls must
// never run while the Room lock is held, since they may re-enter the
// transport's own locking.
func (r *Room) tick() {
	r.mu.Lock()

	var toDestroy []*domain.Session
	if r.usersHaveClosed {
		toDestroy = r.reapLocked()
	}

	now := r.clock.Now()
	if r.quiz.Due(now) {
		question := r.quiz.Next()
		r.broadcastLocked(domain.Message{Type: "Tell", Sender: "MathBot2000", Tell: question})
	}

	r.mu.Unlock()

	for _, session := range toDestroy {
		session.Channel.Close()
	}
}

// reapLocked removes every session whose channel has closed, releasing
// non-lurker nicknames and broadcasting Leave, per spec.md §4.6. Caller
// must hold r.mu. Returns the removed sessions for post-unlock
// destruction.
func (r *Room) reapLocked() []*domain.Session {
	var removed []*domain.Session
	for id, session := range r.sessions {
		if session.Open {
			continue
		}
		nick := session.NickName
		delete(r.sessions, id)
		removed = append(removed, session)
		if nick != "" {
			r.pool.Release(nick)
			r.broadcastLocked(domain.Message{Type: "Leave", NickName: nick})
		}
	}
	r.usersHaveClosed = false
	return removed
}

// Admit allocates a session id, invokes open to negotiate the channel,
// and on success registers the session, per spec.md §4.2. On failure
// the id is simply not reused (it was already burned by the monotonic
// counter), matching the "id never reused" invariant of spec.md §3.
func (r *Room) Admit(open func() (domain.Connection, error)) (*domain.Session, error) {
	id := r.reserveSessionID()

	conn, err := open()
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:       id,
		NickName: "",
		Points:   0,
		LastTell: math.Inf(-1),
		Open:     true,
		Channel:  conn,
	}

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	return session, nil
}

func (r *Room) reserveSessionID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSessionID
	r.nextSessionID++
	return id
}

// HandleClose marks sessionID's channel closed and wakes the worker to
// reap it, per spec.md §4.2, §4.6.
func (r *Room) HandleClose(sessionID uint64) {
	r.mu.Lock()
	if session, ok := r.sessions[sessionID]; ok {
		session.Open = false
		r.usersHaveClosed = true
	}
	r.mu.Unlock()

	r.notifyWorker()
}

// HandleText decodes and dispatches one inbound text message for
// sessionID, per spec.md §4.1, §7. Malformed JSON or an unknown Type is
// a silent drop.
func (r *Room) HandleText(sessionID uint64, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return
	}

	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		r.diag.Publish(sessionSender(sessionID), diagnostics.LevelWarning,
			fmt.Sprintf("malformed message: %v", err))
		return
	}

	switch msg.Type {
	case "GetAvailableNickNames":
		r.handleGetAvailableNickNamesLocked(session)
	case "GetNickNames":
		r.handleGetNickNamesLocked(session)
	case "GetUsers":
		r.handleGetUsersLocked(session)
	case "SetNickName":
		r.handleSetNickNameLocked(session, msg.NickName)
	case "Tell":
		r.handleTellLocked(session, msg.Tell)
	default:
		// Unknown Type: silently ignored, per spec.md §4.1/§7.
	}
}

func (r *Room) handleGetAvailableNickNamesLocked(session *domain.Session) {
	r.sendToLocked(session, domain.Message{
		Type:               "AvailableNickNames",
		AvailableNickNames: r.pool.Snapshot(),
	})
}

func (r *Room) handleGetNickNamesLocked(session *domain.Session) {
	names := make([]string, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.NickName != "" {
			names = append(names, s.NickName)
		}
	}
	sort.Strings(names)
	r.sendToLocked(session, domain.Message{Type: "NickNames", NickNames: names})
}

func (r *Room) handleGetUsersLocked(session *domain.Session) {
	ids := make([]uint64, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		s := r.sessions[id]
		if s.NickName != "" {
			users = append(users, domain.User{Nickname: s.NickName, Points: s.Points})
		}
	}
	r.sendToLocked(session, domain.Message{Type: "Users", Users: users})
}

// handleSetNickNameLocked implements the decision table of spec.md §4.3.
func (r *Room) handleSetNickNameLocked(session *domain.Session, newNick string) {
	old := session.NickName
	success := true
	changed := false

	switch {
	case newNick == "" && old == "":
		// Case A: no-op.
	case newNick == "":
		// Case B: release old, clear nickname.
		r.pool.Release(old)
		session.NickName = ""
		r.broadcastLocked(domain.Message{Type: "Leave", NickName: old})
		changed = true
	case newNick == old:
		// Case C: no-op.
	case !r.pool.Available(newNick):
		// Case D: unknown or already-claimed nickname.
		success = false
	case old == "":
		// Case E: first claim.
		r.pool.Reserve(newNick)
		session.NickName = newNick
		session.Points = r.initialPoints[newNick]
		r.broadcastLocked(domain.Message{Type: "Join", NickName: newNick})
		changed = true
	default:
		// Case F: swap claim.
		r.pool.Release(old)
		r.pool.Reserve(newNick)
		session.NickName = newNick
		session.Points = r.initialPoints[newNick]
		r.broadcastLocked(domain.Message{Type: "Leave", NickName: old})
		r.broadcastLocked(domain.Message{Type: "Join", NickName: newNick})
		changed = true
	}

	if changed {
		r.diag.Publish(sessionSender(session.ID), diagnostics.LevelDetail,
			fmt.Sprintf("Nickname changed from '%s' to '%s'", old, newNick))
	}

	r.sendToLocked(session, domain.Message{Type: "SetNickNameResult", Success: &success})
}

// handleTellLocked implements spec.md §4.4.
func (r *Room) handleTellLocked(session *domain.Session, text string) {
	if session.IsLurker() {
		return
	}

	now := r.clock.Now()
	if now-session.LastTell < r.tellTimeout {
		return
	}
	if text == "" {
		return
	}
	if _, err := strconv.ParseInt(text, 10, 64); err != nil {
		return
	}

	session.LastTell = now
	r.broadcastLocked(domain.Message{Type: "Tell", Sender: session.NickName, Tell: text})

	if r.quiz.AnsweredCorrectly() {
		return
	}
	if r.quiz.CheckAnswer(text) {
		session.Points++
		r.broadcastLocked(domain.Message{
			Type: "Award", Subject: session.NickName, Award: 1, Points: session.Points,
		})
	} else {
		session.Points--
		r.broadcastLocked(domain.Message{
			Type: "Penalty", Subject: session.NickName, Penalty: 1, Points: session.Points,
		})
	}
}

func (r *Room) sendToLocked(session *domain.Session, msg domain.Message) {
	msg.Time = r.clock.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		r.diag.Publish("", diagnostics.LevelError, fmt.Sprintf("marshal message: %v", err))
		return
	}
	if err := session.Channel.Send(data); err != nil {
		r.diag.Publish(sessionSender(session.ID), diagnostics.LevelWarning,
			fmt.Sprintf("send failed: %v", err))
	}
}

func (r *Room) broadcastLocked(msg domain.Message) {
	msg.Time = r.clock.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		r.diag.Publish("", diagnostics.LevelError, fmt.Sprintf("marshal message: %v", err))
		return
	}
	for id, session := range r.sessions {
		if err := session.Channel.Send(data); err != nil {
			r.diag.Publish(sessionSender(id), diagnostics.LevelWarning,
				fmt.Sprintf("send failed: %v", err))
		}
	}
}

func sessionSender(id uint64) string {
	return fmt.Sprintf("Session #%d", id)
}

// Stats reports the current session count and how many hold a claimed
// nickname, for an ambient /stats endpoint — grounded on the teacher's
// hub.Stats().
func (r *Room) Stats() (sessions, claimed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions = len(r.sessions)
	for _, s := range r.sessions {
		if s.NickName != "" {
			claimed++
		}
	}
	return sessions, claimed
}

// --- Test back doors (spec.md §4.9, §9) ---

// NextQuestionComponents returns the (a, b, c) behind the current question.
func (r *Room) NextQuestionComponents() [3]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quiz.Components()
}

// NextQuestion returns the current question text.
func (r *Room) NextQuestion() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quiz.Question()
}

// NextAnswer returns the decimal text of the current answer.
func (r *Room) NextAnswer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quiz.Answer()
}

// SetNextAnswer forces the open question's answer, reopening the round.
func (r *Room) SetNextAnswer(answer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quiz.SetNextAnswer(answer)
}

// SetAnsweredCorrectly force-closes the current round.
func (r *Room) SetAnsweredCorrectly() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quiz.SetAnsweredCorrectly()
}

// AwaitNextQuestion blocks until the next question is posted, ctx is
// canceled, or one second elapses — whichever comes first, mirroring the
// original's condition-variable back door. If no round is open it
// returns at once.
func (r *Room) AwaitNextQuestion(ctx context.Context) {
	r.mu.Lock()
	if r.quiz.AnsweredCorrectly() {
		r.mu.Unlock()
		return
	}
	ch := r.quiz.ChangedSignal()
	r.mu.Unlock()

	select {
	case <-ch:
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
}
