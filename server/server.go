package server

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"simsom/engine"
	"simsom/server/fastview"
)

// Server serves the SimSoM telemetry dashboard: one page, one websocket
// per client, each fed from the same Telemetry the running pipeline's
// Analyzer keeps current. Grounded on the teacher's server.Server, but
// using gorilla/mux for named routes and fastview.NewClient's
// errgroup-based Sync (client.go) instead of the teacher's hand-rolled
// publishEleUpdates loop.
type Server struct {
	addr     string
	rootView *RootView
}

// NewServer builds the dashboard's views over ctx and returns a Server
// ready to Serve() on addr.
func NewServer(ctx context.Context, addr string, telemetry *engine.Telemetry, pollRate time.Duration) *Server {
	return &Server{
		addr:     addr,
		rootView: NewRootView(ctx, telemetry, pollRate),
	}
}

// Serve registers the dashboard's routes and blocks serving them.
func (s *Server) Serve() error {
	router := mux.NewRouter()
	router.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.serveWebsocket)
	router.HandleFunc("/healthz", s.serveHealthz).Methods(http.MethodGet)

	if err := http.ListenAndServe(s.addr, router); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *Server) serveHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// serveWebsocket upgrades the connection and hands it to a
// fastview.client, whose Sync drives read/ping/publish concurrently
// until the client disconnects.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(s.rootView.Updates(), w, r)
	if err != nil {
		return
	}
	if err := cli.Sync(); err != nil {
		fmt.Println("dashboard client sync:", err)
	}
}

// serveIndex serves the dashboard's single page.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := renderTemplate(w, s.rootView); err != nil {
		_, _ = w.Write([]byte(err.Error()))
	}
}

func renderTemplate(w io.Writer, vc fastview.ViewComponent) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}
	return t.Execute(w, nil)
}
