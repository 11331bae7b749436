// Package websocket рассылает статус оплаты подписки подключённым клиентам.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/geoestate/internal/lib/sl"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Message сообщение, отправляемое клиенту.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PaymentUpdate состояние оплаты подписки.
type PaymentUpdate struct {
	SubscriptionID int64      `json:"subscription_id"`
	Status         string     `json:"status"`
	IsActive       bool       `json:"is_active"`
	EndDate        *time.Time `json:"end_date,omitempty"`
}

// Client одно соединение, подписанное на подписку subscriptionID.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	subscriptionID int64
}

type topicMessage struct {
	subscriptionID int64
	data           []byte
}

// Hub хранит соединения, сгруппированные по подписке.
type Hub struct {
	clients    map[int64]map[*Client]bool
	broadcast  chan topicMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *slog.Logger
}

// NewHub создаёт Hub. Перед использованием нужно запустить Run.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		broadcast:  make(chan topicMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run обслуживает регистрацию и рассылку до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.subscriptionID] == nil {
				h.clients[client.subscriptionID] = make(map[*Client]bool)
			}
			h.clients[client.subscriptionID][client] = true
			h.mu.Unlock()
			h.log.Debug("websocket client connected", slog.Int64("subscription_id", client.subscriptionID))

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients[msg.subscriptionID]))
			for client := range h.clients[msg.subscriptionID] {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- msg.data:
				default:
					h.remove(client)
				}
			}

		case <-ctx.Done():
			h.mu.Lock()
			for id, set := range h.clients {
				for client := range set {
					close(client.send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.subscriptionID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.subscriptionID)
	}
	h.log.Debug("websocket client disconnected", slog.Int64("subscription_id", client.subscriptionID))
}

// ClientCount число клиентов, ожидающих статус подписки.
func (h *Hub) ClientCount(subscriptionID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[subscriptionID])
}

// Serve переводит запрос на WebSocket и сразу отправляет текущее состояние current.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, subscriptionID int64, current PaymentUpdate) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("failed to upgrade websocket connection", sl.Err(err))
		return
	}

	client := &Client{
		hub:            h,
		conn:           conn,
		send:           make(chan []byte, 16),
		subscriptionID: subscriptionID,
	}
	if data, err := json.Marshal(Message{Type: "payment", Data: current}); err == nil {
		client.send <- data
	}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// PublishPayment рассылает новое состояние оплаты. Не блокируется:
// при переполненной очереди сообщение отбрасывается.
func (h *Hub) PublishPayment(update PaymentUpdate) {
	data, err := json.Marshal(Message{Type: "payment", Data: update})
	if err != nil {
		h.log.Error("failed to marshal payment update", sl.Err(err))
		return
	}
	select {
	case h.broadcast <- topicMessage{subscriptionID: update.SubscriptionID, data: data}:
	default:
		h.log.Warn("websocket broadcast queue is full", slog.Int64("subscription_id", update.SubscriptionID))
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", sl.Err(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
