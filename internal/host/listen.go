package host

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"spicecomment/internal/protocol"
)

// Listener accepts websocket display surfaces, one session per connection.
type Listener struct {
	deps     Deps
	upgrader websocket.Upgrader

	// sessions tracks live Serve goroutines so shutdown waits for saves
	sessions sync.WaitGroup
}

func NewListener(deps Deps) *Listener {
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	return &Listener{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// Router serves /ws?path=<kernel>, /sessions and /health.
func (l *Listener) Router(ctx context.Context) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		l.handleWS(ctx, w, req)
	}).Methods(http.MethodGet)
	r.HandleFunc("/sessions", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(l.deps.Registry.List())
	}).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	return r
}

func (l *Listener) handleWS(ctx context.Context, w http.ResponseWriter, req *http.Request) {
	path := req.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// one writer per kernel
	if !l.deps.Registry.Claim(abs) {
		http.Error(w, "file already open in another session", http.StatusConflict)
		return
	}

	ws, err := l.upgrader.Upgrade(w, req, nil)
	if err != nil {
		l.deps.Registry.Release(abs)
		l.deps.Log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	l.sessions.Add(1)
	go func() {
		defer l.sessions.Done()
		defer l.deps.Registry.Release(abs)
		if err := Serve(ctx, protocol.NewWSConn(ws), abs, l.deps); err != nil && !errors.Is(err, context.Canceled) {
			l.deps.Log.Warn().Err(err).Str("path", abs).Msg("session ended with error")
		}
	}()
}

// ListenAndServe serves until ctx is done, then waits for open sessions to
// finish.
func (l *Listener) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return l.serve(ctx, ln)
}

func (l *Listener) serve(ctx context.Context, ln net.Listener) error {
	defer l.sessions.Wait()

	srv := &http.Server{
		Handler:           l.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	l.deps.Log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
