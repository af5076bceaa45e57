// Package notify fans engine events out to interested clients.
package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/agent-dungeon/internal/engine"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Broadcaster publishes the events of one dispatch
type Broadcaster interface {
	Publish(ctx context.Context, gameID string, events []engine.Event) error
}

// Nop discards events
type Nop struct{}

// Publish implements Broadcaster
func (Nop) Publish(context.Context, string, []engine.Event) error { return nil }

// Envelope is the websocket frame sent to subscribers
type Envelope struct {
	Type    string       `json:"type"`
	Payload engine.Event `json:"payload"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteJSON sends a frame guarded by the subscriber's mutex and write deadline.
func (s *subscriber) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (s *subscriber) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub keeps websocket subscribers per game id
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[*subscriber]struct{}
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewHub creates a hub. allowOrigin decides which browser origins may
// subscribe; nil allows all.
func NewHub(logger *zap.Logger, allowOrigin func(origin string) bool) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowOrigin == nil || origin == "" || allowOrigin(origin)
		},
	}
	return h
}

// Subscribers reports how many clients watch gameID
func (h *Hub) Subscribers(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[gameID])
}

func (h *Hub) add(gameID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[gameID] == nil {
		h.subscribers[gameID] = make(map[*subscriber]struct{})
	}
	h.subscribers[gameID][s] = struct{}{}
}

func (h *Hub) remove(gameID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers[gameID], s)
	if len(h.subscribers[gameID]) == 0 {
		delete(h.subscribers, gameID)
	}
}

// ServeWS upgrades the request and streams gameID's events until the client
// goes away. Incoming messages are ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	sub := &subscriber{conn: conn}
	h.add(gameID, sub)
	h.logger.Debug("subscriber joined", zap.String("game_id", gameID))
	defer func() {
		h.remove(gameID, sub)
		_ = conn.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := sub.ping(); err != nil {
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish sends every event to the game's subscribers. Subscribers that fail
// a write are dropped.
func (h *Hub) Publish(ctx context.Context, gameID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers[gameID]))
	for s := range h.subscribers[gameID] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame := Envelope{Type: string(ev.Type), Payload: ev}
		for _, s := range subs {
			if err := s.WriteJSON(frame); err != nil {
				h.logger.Info("dropping subscriber", zap.String("game_id", gameID), zap.Error(err))
				h.remove(gameID, s)
				_ = s.conn.Close()
			}
		}
	}
	return nil
}

// Recorder is an in-memory Broadcaster that keeps every published event.
type Recorder struct {
	mu     sync.Mutex
	events map[string][]engine.Event
}

// Publish implements Broadcaster
func (r *Recorder) Publish(_ context.Context, gameID string, events []engine.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string][]engine.Event)
	}
	r.events[gameID] = append(r.events[gameID], events...)
	return nil
}

// Events returns what was published for gameID
func (r *Recorder) Events(gameID string) []engine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Event(nil), r.events[gameID]...)
}
