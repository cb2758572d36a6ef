// Package host declares the consumed side of spec.md §6's host
// contract — the minimal surface a plugin needs from whatever process
// hosts it (resource registration, a time source, diagnostics) — and
// provides a net/http-backed Server for cmd/chatroomd, the standalone
// host.
//
// Grounded on the original ChatRoomPlugin.cpp's Http::IServer (the
// RegisterResource / GetTimeKeeper surface LoadPlugin receives) and on
// the teacher's main.go, which wires an http.ServeMux directly rather
// than going through an interface; Server below is the interface the
// teacher never needed because it only ever had one host.
package host

import (
	"net/http"
	"sync"

	"dragonfox-chatroom/diagnostics"
	"dragonfox-chatroom/domain"
)

// ResourceHandler serves requests under a registered resource subspace.
type ResourceHandler func(w http.ResponseWriter, r *http.Request)

// Unregister removes a previously registered resource.
type Unregister func()

// Server is the host contract a plugin consumes, per spec.md §6.
type Server interface {
	RegisterResource(path string, handler ResourceHandler) Unregister
	GetTimeKeeper() domain.TimeSource
	Diagnostics() *diagnostics.Sink
}

// HTTPServer is a minimal net/http-backed Server, standing in for the
// production host process. Routes are matched by exact resource path.
type HTTPServer struct {
	mu     sync.RWMutex
	routes map[string]ResourceHandler
	clock  domain.TimeSource
	diag   *diagnostics.Sink
	mux    *http.ServeMux
}

// New constructs an HTTPServer using clock as its time source and diag
// as its diagnostics sink.
func New(clock domain.TimeSource, diag *diagnostics.Sink) *HTTPServer {
	s := &HTTPServer{
		routes: make(map[string]ResourceHandler),
		clock:  clock,
		diag:   diag,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.dispatch)
	return s
}

// RegisterResource installs handler for path, returning a delegate that
// removes it — the Go rendition of Http::IServer::RegisterResource's
// unregistration delegate.
func (s *HTTPServer) RegisterResource(path string, handler ResourceHandler) Unregister {
	s.mu.Lock()
	s.routes["/"+path] = handler
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.routes, "/"+path)
		s.mu.Unlock()
	}
}

// GetTimeKeeper returns the host's time source.
func (s *HTTPServer) GetTimeKeeper() domain.TimeSource {
	return s.clock
}

// Diagnostics returns the host's diagnostics sink.
func (s *HTTPServer) Diagnostics() *diagnostics.Sink {
	return s.diag
}

func (s *HTTPServer) dispatch(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	handler, ok := s.routes[r.URL.Path]
	s.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

// Handler exposes the underlying mux for http.Server wiring.
func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

var _ Server = (*HTTPServer)(nil)
