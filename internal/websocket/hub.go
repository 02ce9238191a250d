package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/vp-back/internal/messaging"
	"github.com/vp-back/internal/metrics"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/models"
)

// message types pushed to clients
const (
	msgTypeCandle  = "candle"
	msgTypeProfile = "profile"
	msgTypeSignal  = "signal"
)

// Envelope wraps every outbound WebSocket message
type Envelope struct {
	Type   string      `json:"type"`
	Symbol string      `json:"symbol"`
	Data   interface{} `json:"data"`
}

// clientCommand is what clients send to manage subscriptions
type clientCommand struct {
	Action  string   `json:"action"` // subscribe | unsubscribe
	Symbols []string `json:"symbols"`
}

// Hub fans out profile, signal and candle updates to WebSocket clients
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan targetedMessage
	mu         sync.RWMutex

	nats     *messaging.NATSClient
	logger   *logrus.Entry
	cfg      *config.WebSocketConfig
	upgrader websocket.Upgrader
	stats    *metrics.Metrics
}

type targetedMessage struct {
	symbol string
	data   []byte
}

// Client is a single WebSocket connection with its symbol subscriptions
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	symbols map[string]bool
	mu      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(nats *messaging.NATSClient, cfg *config.WebSocketConfig, logger *logrus.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan targetedMessage, 1000),
		nats:       nats,
		logger:     logger.WithField("component", "websocket"),
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	if err := h.subscribeToUpdates(); err != nil {
		logger.WithError(err).Error("Failed to subscribe to updates")
	}

	return h
}

// SetMetrics attaches Prometheus metrics. Must be called before Run.
func (h *Hub) SetMetrics(m *metrics.Metrics) {
	h.stats = m
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			if h.stats != nil {
				h.stats.WSClients.Set(float64(count))
			}
			h.logger.WithField("clients", count).Debug("Client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if h.stats != nil {
				h.stats.WSClients.Set(float64(count))
			}
			h.logger.WithField("clients", count).Debug("Client disconnected")

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver sends a message to every client subscribed to its symbol
func (h *Hub) deliver(msg targetedMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.subscribed(msg.symbol) {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			// Slow client, drop the message rather than block the hub
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		client.conn.Close()
		delete(h.clients, client)
	}
}

// subscribeToUpdates wires NATS subjects into the broadcast channel
func (h *Hub) subscribeToUpdates() error {
	if h.nats == nil {
		return nil
	}

	if err := h.nats.SubscribeCandles(func(candle *models.Candle) {
		h.push(msgTypeCandle, candle.Symbol, candle)
	}); err != nil {
		return err
	}

	if err := h.nats.SubscribeProfiles(func(vp *models.VolumeProfile) {
		h.push(msgTypeProfile, vp.Symbol, vp)
	}); err != nil {
		return err
	}

	return h.nats.SubscribeSignals(func(sig *models.Signal) {
		h.push(msgTypeSignal, sig.Symbol, sig)
	})
}

func (h *Hub) push(msgType, symbol string, payload interface{}) {
	data, err := json.Marshal(Envelope{Type: msgType, Symbol: symbol, Data: payload})
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal update")
		return
	}

	select {
	case h.broadcast <- targetedMessage{symbol: symbol, data: data}:
	default:
		h.logger.Warn("Broadcast queue full, dropping update")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades an HTTP request to a WebSocket connection
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	if h.cfg.MaxClients > 0 && h.ClientCount() >= h.cfg.MaxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade connection")
		return
	}

	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     h,
		symbols: make(map[string]bool),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) subscribed(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.symbols[symbol]
}

// readPump handles subscribe/unsubscribe commands from the client
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.WithError(err).Debug("Unexpected close")
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		c.mu.Lock()
		switch cmd.Action {
		case "subscribe":
			for _, symbol := range cmd.Symbols {
				c.symbols[symbol] = true
			}
		case "unsubscribe":
			for _, symbol := range cmd.Symbols {
				delete(c.symbols, symbol)
			}
		}
		c.mu.Unlock()
	}
}

// writePump sends queued messages and pings to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
