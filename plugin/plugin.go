// Package plugin implements the Plugin Contract (spec.md C10): Load
// wires a Room into a host.Server under the configured resource space
// and returns a Plugin whose Unload is idempotent, mirroring the original
// ChatRoomPlugin.cpp's LoadPlugin/unloadDelegate pair.
package plugin

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"dragonfox-chatroom/config"
	"dragonfox-chatroom/diagnostics"
	"dragonfox-chatroom/host"
	"dragonfox-chatroom/protocol"
	"dragonfox-chatroom/room"
	"dragonfox-chatroom/transport"
)

// Plugin is the loaded, running instance: a Room bound to a host
// resource, plus the test back doors spec.md §4.9/§9 expect a loaded
// plugin instance to expose.
type Plugin struct {
	id         string
	room       *room.Room
	unregister host.Unregister

	unloadOnce sync.Once
}

// Load validates cfg, starts a Room, and registers it with server at
// cfg's configured resource space. If Load fails the returned Plugin is
// nil; the caller must not call Unload.
func Load(server host.Server, cfg config.Config) (*Plugin, error) {
	diag := server.Diagnostics()

	path, err := cfg.SpacePath()
	if err != nil {
		diag.Publish("", diagnostics.LevelError, err.Error())
		return nil, err
	}

	id := uuid.NewString()
	diag.Publish("plugin", diagnostics.LevelInfo, fmt.Sprintf("loading instance %s for space %q", id, path))

	r := room.New(room.Config{
		NickNames:     cfg.NickNames,
		InitialPoints: cfg.InitialPoints,
		TellTimeout:   cfg.TellTimeout,
		MinCoolDown:   cfg.MathQuiz.MinCoolDown,
		MaxCoolDown:   cfg.MathQuiz.MaxCoolDown,
		Seed:          seedFromID(id),
		Clock:         server.GetTimeKeeper(),
		Diagnostics:   diag,
	})
	r.Start()

	dispatcher := protocol.New(r, diag)

	unregister := server.RegisterResource(path, func(w http.ResponseWriter, req *http.Request) {
		transport.ServeHTTP(w, req, r, dispatcher, diag)
	})

	p := &Plugin{id: id, room: r, unregister: unregister}
	return p, nil
}

// seedFromID derives a deterministic-per-instance RNG seed from the
// plugin's correlation id, so two instances never share a quiz
// sequence without needing a process-global random source.
func seedFromID(id string) int64 {
	var seed int64
	for _, b := range []byte(id) {
		seed = seed*31 + int64(b)
	}
	return seed
}

// Unload stops the Room and unregisters its resource. Safe to call more
// than once; only the first call has effect.
func (p *Plugin) Unload() {
	p.unloadOnce.Do(func() {
		p.unregister()
		p.room.Stop()
	})
}

// --- Test back doors (spec.md §4.9, §9) ---

func (p *Plugin) GetNextQuestionComponents() [3]int { return p.room.NextQuestionComponents() }
func (p *Plugin) GetNextQuestion() string           { return p.room.NextQuestion() }
func (p *Plugin) GetNextAnswer() string             { return p.room.NextAnswer() }
func (p *Plugin) SetNextAnswer(answer string)       { p.room.SetNextAnswer(answer) }
func (p *Plugin) SetAnsweredCorrectly()             { p.room.SetAnsweredCorrectly() }

func (p *Plugin) AwaitNextQuestion(ctx context.Context) {
	p.room.AwaitNextQuestion(ctx)
}

// Stats reports the current session count and claimed-nickname count.
func (p *Plugin) Stats() (sessions, claimed int) {
	return p.room.Stats()
}
