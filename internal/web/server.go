// Package web serves the numato-bridge status page and its JSON form.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/cdleonard/numato-control/internal/status"
)

// Server exposes a Tracker snapshot over HTTP.
type Server struct {
	srv     *http.Server
	tracker *status.Tracker
}

// New builds a Server bound to addr. Nothing listens until ListenAndServe
// or Serve is called.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHTML)
	mux.HandleFunc("/index.html", s.serveHTML)
	mux.HandleFunc("/index.json", s.serveJSON)

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe() error { return s.srv.ListenAndServe() }

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

func (s *Server) serveHTML(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/index.html":
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) serveJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}
