package invalidation

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/events"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/httpkit"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/validator"
)

const (
	EventDocumentChanged = "document_changed"
	EventConnected       = "connected"
	EventPing            = "ping"

	clientBuffer     = 32
	defaultHeartbeat = 25 * time.Second
)

// Message is the payload of a document_changed SSE event.
type Message struct {
	Collection string `json:"collection"`
	DocumentID string `json:"documentId"`
	Operation  string `json:"operation"`
}

type client struct {
	userID     string
	collection string
	events     chan Message
}

// Hub keeps the connected SSE clients and broadcasts changes to them. A
// client may subscribe to a single collection with ?collection=.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*client]struct{}
	heartbeat time.Duration
	log       *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		clients:   make(map[*client]struct{}),
		heartbeat: defaultHeartbeat,
		log:       log,
	}
}

// Handle implements events.Handler for DocumentChanged.
func (h *Hub) Handle(_ context.Context, event events.Event) error {
	e, ok := event.(events.DocumentChanged)
	if !ok {
		return nil
	}
	h.Broadcast(Message{Collection: e.Collection, DocumentID: e.DocumentID, Operation: e.Operation})
	return nil
}

// Broadcast delivers m to every interested client. Clients whose buffer is
// full miss the message.
func (h *Hub) Broadcast(m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.collection != "" && c.collection != m.Collection {
			continue
		}
		select {
		case c.events <- m:
		default:
			h.log.Warn("sse buffer full", "user_id", c.userID, "collection", m.Collection)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.events)
	}
}

// Handler streams changes to the caller until it disconnects.
// GET /api/v1/events?collection=
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.GetIdentity(c)
		collection := c.Query("collection")
		if collection != "" && !validator.IsCollectionName(collection) {
			httpkit.Error(c, http.StatusBadRequest, apperr.CodeValidation, "invalid collection", nil)
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID:     identity.UserID(),
			collection: collection,
			events:     make(chan Message, clientBuffer),
		}
		h.add(cl)
		defer h.remove(cl)

		c.SSEvent(EventConnected, gin.H{"collection": collection})
		c.Writer.Flush()
		h.log.Debug("sse client connected", "user_id", cl.userID, "collection", collection)

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				h.log.Debug("sse client disconnected", "user_id", cl.userID)
				return
			case <-ticker.C:
				c.SSEvent(EventPing, time.Now().UTC().Format(time.RFC3339))
				c.Writer.Flush()
			case m, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(m)
				c.SSEvent(EventDocumentChanged, string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.events)
	}
	h.clients = make(map[*client]struct{})
}
