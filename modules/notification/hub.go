package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	nanoid "github.com/jaevor/go-nanoid"
)

// TopicTasks is the only topic task events are broadcast on.
const TopicTasks = "tasks"

const (
	clientIDLength = 12

	// clientSendBuffer is how many frames may queue for one client before it is dropped.
	clientSendBuffer = 64

	// writeWait bounds a single frame write to a peer.
	writeWait = 10 * time.Second
)

// Conn is the write side of a subscriber connection. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client represents a connected WebSocket subscriber. Frames are written by the
// client's own writer goroutine, fed through send.
type Client struct {
	ID     string
	Topic  string
	TaskID string // empty receives every task
	Conn   Conn

	send    chan []byte
	done    chan struct{}
	dropped atomic.Bool
}

// Done is closed once the client's writer has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Message is the envelope written to subscribers.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type broadcastMessage struct {
	topic  string
	taskID string
	msg    Message
}

// Hub manages subscriber connections and message broadcasting. The run loop never
// writes to a socket: a client whose queue is full is disconnected instead of
// holding up the others.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage
	done       chan struct{}
	writers    sync.WaitGroup
	newID      func() string
	logger     types.Logger
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	gen, err := nanoid.Standard(clientIDLength)
	if err != nil {
		panic(fmt.Sprintf("nanoid generator: %v", err))
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
		done:       make(chan struct{}),
		newID:      gen,
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled and every
// client writer has finished.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down", "clients", h.ClientCount())
			h.closeAllClients()
			h.writers.Wait()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// NewClient builds a subscriber on TopicTasks with a fresh ID.
func (h *Hub) NewClient(conn Conn, taskID string) *Client {
	return &Client{
		ID:     h.newID(),
		Topic:  TopicTasks,
		TaskID: taskID,
		Conn:   conn,
		send:   make(chan []byte, clientSendBuffer),
		done:   make(chan struct{}),
	}
}

// Register adds a client to the hub and starts its writer. It returns false once
// the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub. Its writer flushes what is queued and exits.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues msg for every client on topic. A non-empty taskID skips clients
// filtered to another task. Messages sent after shutdown are dropped.
func (h *Hub) Broadcast(topic, taskID string, msg Message) {
	select {
	case h.broadcast <- &broadcastMessage{topic: topic, taskID: taskID, msg: msg}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.dropped.Store(true)
		close(client.send)
		delete(h.clients, id)
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	h.writers.Add(1)
	go h.writeLoop(client)
	h.logger.Debug("Client registered", "client_id", client.ID, "task_id", client.TaskID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.send)
		h.logger.Debug("Client unregistered", "client_id", client.ID)
	}
}

func (h *Hub) handleBroadcast(b *broadcastMessage) {
	data, err := json.Marshal(b.msg)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", "type", b.msg.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		if client.Topic != b.topic {
			continue
		}
		if client.TaskID != "" && b.taskID != "" && client.TaskID != b.taskID {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("Dropping slow client", "client_id", client.ID, "queued", len(client.send))
			client.dropped.Store(true)
			close(client.send)
			delete(h.clients, id)
		}
	}
}

// writeLoop delivers queued frames in order. A failed write closes the connection
// and discards the rest of the queue until the hub lets go of the client.
func (h *Hub) writeLoop(client *Client) {
	defer h.writers.Done()
	defer close(client.done)

	for data := range client.send {
		_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("Failed to send to client", "client_id", client.ID, "error", err)
			_ = client.Conn.Close()
			for range client.send {
			}
			return
		}
	}

	if client.dropped.Load() {
		_ = client.Conn.Close()
	}
}
