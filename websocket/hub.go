package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Event types pushed to connected dashboards
const (
	EventPaymentProcessed = "payment_processed"
	EventLoanArrears      = "loan_arrears"
	EventSweepCompleted   = "sweep_completed"
)

// Notification represents a message sent over WebSocket
type Notification struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Client represents a connected dashboard session
type Client struct {
	Conn *websocket.Conn
	mu   sync.Mutex
}

// send serializes writes to the connection; gorilla/websocket allows at
// most one concurrent writer per connection
func (c *Client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Hub maintains the set of connected dashboards and broadcasts portfolio
// events to them; it replaces the realtime snapshot listeners the old
// front end attached directly to the database
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a notification to every connected dashboard
func (h *Hub) Broadcast(notification Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.send(notification)
	}
}

// NotifyPaymentProcessed announces a completed payment allocation
func (h *Hub) NotifyPaymentProcessed(data interface{}) {
	h.Broadcast(Notification{
		Type:    EventPaymentProcessed,
		Message: "A payment was processed",
		Data:    data,
	})
}

// NotifyLoanArrears announces loans pushed into arrears by the daily sweep
func (h *Hub) NotifyLoanArrears(data interface{}) {
	h.Broadcast(Notification{
		Type:    EventLoanArrears,
		Message: "Loans entered arrears",
		Data:    data,
	})
}

// NotifySweepCompleted announces an accrual sweep run
func (h *Hub) NotifySweepCompleted(data interface{}) {
	h.Broadcast(Notification{
		Type:    EventSweepCompleted,
		Message: "Accrual sweep completed",
		Data:    data,
	})
}
