package communication

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/helmsman-ai/helmsman/bus"
)

// WebSocketManager broadcasts bus events to connected dashboard clients.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan bus.Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	unsubs     []func()
}

// NewWebSocketManager starts the broadcast loop.
func NewWebSocketManager() *WebSocketManager {
	manager := &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan bus.Event, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
	go manager.run()
	return manager
}

// Attach subscribes the manager to every event type on the bus.
func (manager *WebSocketManager) Attach(b *bus.Bus) {
	for _, t := range bus.AllEventTypes() {
		manager.unsubs = append(manager.unsubs, b.On(t, manager.enqueue))
	}
}

// enqueue hands the event to the broadcast loop without blocking the
// emitting agent; a full buffer drops the event for slow consumers.
func (manager *WebSocketManager) enqueue(ev bus.Event) {
	select {
	case manager.broadcast <- ev:
	default:
		log.Printf("WebSocket broadcast buffer full, dropping %s", ev.Type)
	}
}

func (manager *WebSocketManager) run() {
	for {
		select {
		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client] = true
			manager.mu.Unlock()

		case client := <-manager.unregister:
			manager.mu.Lock()
			if _, ok := manager.clients[client]; ok {
				delete(manager.clients, client)
				client.Close()
			}
			manager.mu.Unlock()

		case event := <-manager.broadcast:
			manager.mu.Lock()
			for client := range manager.clients {
				if err := client.WriteJSON(event); err != nil {
					log.Printf("WebSocket error: %v", err)
					client.Close()
					delete(manager.clients, client)
				}
			}
			manager.mu.Unlock()
		}
	}
}

// Register returns the channel new connections are handed to.
func (manager *WebSocketManager) Register() chan<- *websocket.Conn {
	return manager.register
}

// Unregister returns the channel closing connections are handed to.
func (manager *WebSocketManager) Unregister() chan<- *websocket.Conn {
	return manager.unregister
}
