// Package bus is the websocket event feed for companion clients (tray
// icon, dashboards). The daemon publishes responses, reminder
// notifications and summaries; clients may push text utterances back.
package bus

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event kinds.
const (
	KindResponse     = "response"
	KindNotification = "notification"
	KindSummary      = "summary"
	KindUtterance    = "utterance" // inbound only
)

// Event is one message on the feed.
type Event struct {
	Kind    string    `json:"kind"`
	From    string    `json:"from"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Server fans events out to every connected client.
type Server struct {
	mu          sync.Mutex
	clients     map[*websocket.Conn]struct{}
	onUtterance func(text string)
	upgrader    websocket.Upgrader
}

// NewServer builds a feed. onUtterance receives text commands pushed by
// clients; nil ignores them.
func NewServer(onUtterance func(string)) *Server {
	return &Server{
		clients:     make(map[*websocket.Conn]struct{}),
		onUtterance: onUtterance,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Publish sends an event to every connected client. Slow or broken
// clients are dropped.
func (s *Server) Publish(kind, content string) {
	ev := Event{Kind: kind, From: "aide", Content: content, Time: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug("dropping bus client", "err", err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// Serve runs the feed on addr until the context is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info("event bus listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("bus upgrade failed", "err", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	go s.readLoop(conn)
}

func (s *Server) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Debug("bus read failed", "err", err)
			}
			return
		}

		if ev.Kind == KindUtterance && s.onUtterance != nil && ev.Content != "" {
			s.onUtterance(ev.Content)
		}
	}
}
