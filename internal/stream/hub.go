package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans appended visit events out to dashboard websockets, keyed by
// location. With redis configured, events also flow through pub/sub so
// every API instance sees every terminal's events.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	LocationID string
	Send       chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(locationID string) *Client {
	client := &Client{
		LocationID: locationID,
		Send:       make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[locationID] == nil {
		h.clients[locationID] = map[*Client]struct{}{}
	}
	h.clients[locationID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if locationClients, ok := h.clients[client.LocationID]; ok {
		delete(locationClients, client)
		if len(locationClients) == 0 {
			delete(h.clients, client.LocationID)
		}
	}
	close(client.Send)
}

// Broadcast delivers the payload to watchers of the location. With redis
// configured, delivery goes through pub/sub so every API instance's
// watchers see it exactly once; without redis it fans out locally. Slow
// watchers are skipped, never blocked on.
func (h *Hub) Broadcast(locationID string, payload []byte) {
	if h.redis == nil {
		h.deliver(locationID, payload)
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(locationID), payload).Err(); err != nil {
		log.Printf("redis publish error: %v", err)
		h.deliver(locationID, payload)
	}
}

func (h *Hub) deliver(locationID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[locationID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "presence:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(locationIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func redisChannel(locationID string) string {
	return "presence:" + locationID + ":events"
}

func locationIDFromChannel(ch string) string {
	// presence:{location}:events
	const prefix = "presence:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
