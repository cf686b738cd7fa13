package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/events"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

// SafeConn wraps a websocket connection with a write mutex; gorilla allows
// only one concurrent writer.
type SafeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

// NewSafeConn creates a new safe connection wrapper
func NewSafeConn(conn *websocket.Conn) *SafeConn {
	return &SafeConn{conn: conn}
}

// WriteJSON writes v unless the connection was closed.
func (sc *SafeConn) WriteJSON(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	if sc.closed {
		return nil
	}
	sc.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return sc.conn.WriteJSON(v)
}

// Close closes the underlying connection
func (sc *SafeConn) Close() error {
	sc.writeMu.Lock()
	sc.closed = true
	sc.writeMu.Unlock()
	return sc.conn.Close()
}

// Server serves the preview of the sessions it created.
type Server struct {
	bus      *events.EventBus
	logger   *utils.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session
	current  string
}

// NewServer creates a server broadcasting the events of bus.
func NewServer(bus *events.EventBus, logger *utils.Logger) *Server {
	return &Server{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
			},
		},
		sessions: make(map[string]*Session),
	}
}

// NewSession starts a session whose preview this server serves. It becomes
// the default for /preview.
func (s *Server) NewSession() *Session {
	sess := NewSession(s.bus)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.current = sess.ID
	s.mu.Unlock()
	return sess
}

// Handler returns the HTTP routes: /healthz, /preview and /ws.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"subscribers": s.bus.SubscriberCount(),
		})
	})
	r.Get("/preview", s.handlePreview)
	r.Get("/preview/{session}", s.handlePreview)
	r.Get("/ws", s.handleWebSocket)
	return r
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")

	s.mu.RLock()
	if id == "" {
		id = s.current
	}
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "no such preview session", http.StatusNotFound)
		return
	}
	frag := sess.Latest()
	if frag == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, frag)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("preview websocket upgrade error: %v", err)
		return
	}
	safeConn := NewSafeConn(conn)
	defer safeConn.Close()

	name := "ws-" + uuid.NewString()
	eventCh := s.bus.Subscribe(name)
	defer s.bus.Unsubscribe(name)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// clients only listen; reading detects the close
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(64 * 1024)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logf("preview websocket %s read error: %v", name, err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if err := safeConn.WriteJSON(event); err != nil {
				s.logf("preview websocket %s write error: %v", name, err)
				return
			}
		}
	}
}

// ListenAndServe serves Handler on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logf("preview listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.bus.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Logf(format, v...)
	}
}
