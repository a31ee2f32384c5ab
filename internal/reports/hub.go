package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jimdaga/ki-report/internal/events"
	"github.com/jimdaga/ki-report/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 8
)

// StatusMessage is pushed to websocket subscribers.
type StatusMessage struct {
	ReportID   uint   `json:"report_id,omitempty"`
	BriefingID uint   `json:"briefing_id,omitempty"`
	TaskID     string `json:"task_id,omitempty"`
	Status     string `json:"status"`
	PDFURL     string `json:"pdf_url,omitempty"`
}

func (m StatusMessage) terminal() bool {
	return m.Status == models.ReportStatusDone || m.Status == models.ReportStatusFailed
}

type subscriber struct {
	send chan StatusMessage
}

// Hub fans report status changes out to websocket clients. Clients
// subscribe by report ID or by task ID.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	logger *slog.Logger

	upgrader websocket.Upgrader
}

// NewHub creates a Hub. allowedOrigins empty allows any origin.
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// NotifyReport delivers ev to everyone watching its report or task. Slow
// subscribers miss messages rather than block the caller.
func (h *Hub) NotifyReport(ev events.ReportEvent) {
	msg := StatusMessage{ReportID: ev.ReportID, BriefingID: ev.BriefingID, TaskID: ev.TaskID, Status: ev.Status, PDFURL: ev.PDFURL}

	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[*subscriber]struct{})
	for _, key := range []string{ev.TaskID, strconv.FormatUint(uint64(ev.ReportID), 10)} {
		for s := range h.subs[key] {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			select {
			case s.send <- msg:
			default:
				h.logger.Warn("dropping status message for slow subscriber", "key", key)
			}
		}
	}
}

// Subscribers returns the number of open subscriptions for key.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

func (h *Hub) subscribe(key string) *subscriber {
	s := &subscriber{send: make(chan StatusMessage, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*subscriber]struct{})
	}
	h.subs[key][s] = struct{}{}
	return s
}

func (h *Hub) unsubscribe(key string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[key], s)
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
}

// serve upgrades the request and streams messages for key until a terminal
// status is sent or the client goes away. snapshot runs after subscribing so
// no change between the two is lost; a nil result sends nothing.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, key string, snapshot func() *StatusMessage) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	sub := h.subscribe(key)
	defer func() {
		h.unsubscribe(key, sub)
		conn.Close()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	write := func(msg StatusMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			return false
		}
		if msg.terminal() {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, msg.Status),
				time.Now().Add(writeWait))
			return false
		}
		return true
	}

	if initial := snapshot(); initial != nil && !write(*initial) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-sub.send:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
