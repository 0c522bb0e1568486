package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans snapshot payloads out to websocket clients grouped by device.
// With a redis client it also relays payloads between hub instances; every
// relayed message carries the publishing hub's origin so a hub never
// re-delivers its own broadcasts. Publishing runs on its own goroutine, so
// Broadcast never waits on redis.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	origin  string
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	done    chan struct{}
	outbox  chan outgoing
	stop    context.Context
	cancel  context.CancelFunc
}

type outgoing struct {
	channel string
	msg     []byte
}

type Client struct {
	DeviceID string
	Send     chan []byte
}

type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		origin:  uuid.NewString(),
		clients: map[string]map[*Client]struct{}{},
		done:    make(chan struct{}),
	}
	h.stop, h.cancel = context.WithCancel(context.Background())

	if redisClient == nil {
		close(h.done)
		return h
	}

	h.outbox = make(chan outgoing, 256)
	go h.publishRedis()

	ctx := context.Background()
	pubsub := redisClient.PSubscribe(ctx, redisPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("redis subscribe error: %v", err)
		_ = pubsub.Close()
		close(h.done)
		return h
	}
	h.pubsub = pubsub
	go h.subscribeRedis()
	return h
}

func (h *Hub) Register(deviceID string) *Client {
	client := &Client{
		DeviceID: deviceID,
		Send:     make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[deviceID] == nil {
		h.clients[deviceID] = map[*Client]struct{}{}
	}
	h.clients[deviceID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if deviceClients, ok := h.clients[client.DeviceID]; ok {
		delete(deviceClients, client)
		if len(deviceClients) == 0 {
			delete(h.clients, client.DeviceID)
		}
	}
	close(client.Send)
}

// Broadcast delivers payload to local clients and, when redis is
// configured, queues it for the other hub instances. It never blocks: when
// the publish queue is full the payload is not relayed. payload must be valid
// JSON.
func (h *Hub) Broadcast(deviceID string, payload []byte) {
	h.deliver(deviceID, payload)

	if h.outbox == nil {
		return
	}
	msg, err := json.Marshal(envelope{Origin: h.origin, Payload: payload})
	if err != nil {
		log.Printf("redis envelope error: %v", err)
		return
	}
	select {
	case h.outbox <- outgoing{channel: redisChannel(deviceID), msg: msg}:
	default:
		log.Printf("redis publish queue full, dropping broadcast for %s", deviceID)
	}
}

// Close stops relaying messages to and from redis. A publish already on the
// wire finishes within the client's own timeouts. The redis client itself is
// owned by the caller.
func (h *Hub) Close() {
	h.cancel()
	if h.pubsub != nil {
		_ = h.pubsub.Close()
	}
	<-h.done
}

func (h *Hub) publishRedis() {
	for {
		select {
		case <-h.stop.Done():
			return
		case out := <-h.outbox:
			err := h.redis.Publish(h.stop, out.channel, out.msg).Err()
			if err != nil && h.stop.Err() == nil {
				log.Printf("redis publish error: %v", err)
			}
		}
	}
}

func (h *Hub) deliver(deviceID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[deviceID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	defer close(h.done)

	for msg := range h.pubsub.Channel() {
		deviceID := deviceIDFromChannel(msg.Channel)
		if deviceID == "" {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("redis message decode error: %v", err)
			continue
		}
		if env.Origin == h.origin {
			continue
		}
		h.deliver(deviceID, env.Payload)
	}
}

const (
	channelPrefix = "speedometer:"
	channelSuffix = ":snapshots"
	redisPattern  = channelPrefix + "*" + channelSuffix
)

func redisChannel(deviceID string) string {
	return channelPrefix + deviceID + channelSuffix
}

func deviceIDFromChannel(ch string) string {
	// speedometer:{device}:snapshots
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
