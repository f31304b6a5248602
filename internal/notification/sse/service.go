// Package sse provides Server-Sent Events push for real-time UI updates.
// Delivery is best effort: a slow client drops events rather than blocking
// the pipeline.
package sse

import (
	"encoding/json"
	"sync"

	"nurture_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events.
type EventType string

const (
	EventNewMessage          EventType = "new-message"
	EventMessageStatusUpdate EventType = "message-status-update"
	EventCallCompleted       EventType = "call-completed"
)

// Event is an SSE event payload.
type Event struct {
	Type    EventType   `json:"type"`
	LeadID  uuid.UUID   `json:"leadId,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type client struct {
	operatorID uuid.UUID
	events     chan Event
}

// Service manages SSE connections and event broadcasting.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	log     *logger.Logger
}

// New creates a new SSE service.
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.operatorID] = append(s.clients[c.operatorID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close only if still registered; Close() already closed the rest.
	clients := s.clients[c.operatorID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.operatorID] = append(clients[:i], clients[i+1:]...)
			close(c.events)
			break
		}
	}
	if len(s.clients[c.operatorID]) == 0 {
		delete(s.clients, c.operatorID)
	}
}

// Publish sends an event to every connection of an operator. Events to full
// client buffers are dropped.
func (s *Service) Publish(operatorID uuid.UUID, event Event) {
	s.mu.RLock()
	clients := s.clients[operatorID]
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("SSE event buffer full, dropping event",
				"operatorId", operatorID, "type", event.Type)
		}
	}
}

// Handler returns a gin handler for SSE connections.
func (s *Service) Handler(getOperatorID func(*gin.Context) uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		operatorID := getOperatorID(c)

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			operatorID: operatorID,
			events:     make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"operatorId": operatorID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down all client connections.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
