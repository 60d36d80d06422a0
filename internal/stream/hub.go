package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans replan-status and itinerary-change events out to every
// websocket client subscribed to a trip, and mirrors broadcasts through
// Redis pub/sub so multiple server instances stay in sync.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	TripID string
	Send   chan []byte
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

func (h *Hub) Register(tripID string) *Client {
	client := &Client{
		TripID: tripID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[tripID] == nil {
		h.clients[tripID] = map[*Client]struct{}{}
	}
	h.clients[tripID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tripClients, ok := h.clients[client.TripID]; ok {
		delete(tripClients, client)
		if len(tripClients) == 0 {
			delete(h.clients, client.TripID)
		}
	}
	close(client.Send)
}

// Broadcast pushes one event (a replan proposal, an applied change, an
// itinerary edit) to every client subscribed to tripID.
func (h *Hub) Broadcast(tripID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[tripID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(tripID), payload).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, "trip:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		tripID := tripIDFromChannel(msg.Channel)
		h.mu.RLock()
		clients := h.clients[tripID]
		h.mu.RUnlock()
		for client := range clients {
			select {
			case client.Send <- []byte(msg.Payload):
			default:
			}
		}
	}
}

func redisChannel(tripID string) string {
	return "trip:" + tripID + ":events"
}

func tripIDFromChannel(ch string) string {
	// trip:{tripID}:events
	const prefix = "trip:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
