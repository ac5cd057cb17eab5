package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboards are served from other origins
	},
}

// Message types
const (
	MessageConnected = "connected"
	MessageAlert     = "market_alert"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// AlertHub is the live alert feed at /ws/alerts. It is registered with the
// alert service as a notifier, so every persisted alert is pushed to all
// connected clients.
type AlertHub struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	serverInstanceID string // Clients use this to detect a server restart
}

// NewAlertHub creates an empty hub
func NewAlertHub(logger arbor.ILogger) *AlertHub {
	h := &AlertHub{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	logger.Debug().Str("server_instance_id", h.serverInstanceID).Msg("Alert hub initialized")
	return h
}

// HandleWebSocket handles GET /ws/alerts
func (h *AlertHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	mutex := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = mutex
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Int("clients", total).Msg("WebSocket client connected")

	h.send(conn, mutex, WSMessage{
		Type: MessageConnected,
		Payload: map[string]string{
			"serverInstanceId": h.serverInstanceID,
		},
	})

	done := make(chan struct{})
	go h.keepAlive(conn, mutex, done)

	// Clients only listen; reads exist to observe close frames and pongs
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(done)
	h.remove(conn)
}

func (h *AlertHub) keepAlive(conn *websocket.Conn, mutex *sync.Mutex, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			mutex.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			mutex.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *AlertHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	total := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.logger.Info().Int("clients", total).Msg("WebSocket client disconnected")
}

func (h *AlertHub) send(conn *websocket.Conn, mutex *sync.Mutex, msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	mutex.Lock()
	defer mutex.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// ClientCount returns the number of connected clients
func (h *AlertHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify broadcasts an alert to every connected client. Clients that fail
// to receive it are dropped; the hub itself never reports a failure.
func (h *AlertHub) Notify(ctx context.Context, alert *models.Alert) error {
	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	msg := WSMessage{Type: MessageAlert, Payload: alert}
	for i, conn := range clients {
		if err := h.send(conn, mutexes[i], msg); err != nil {
			h.logger.Warn().Err(err).Str("alert_id", alert.ID).Msg("Failed to send alert to client")
			h.remove(conn)
		}
	}
	return nil
}

// Close disconnects every client
func (h *AlertHub) Close() {
	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.RUnlock()

	for _, conn := range clients {
		h.remove(conn)
	}
}
