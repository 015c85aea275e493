package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/SanketOodles/wa-automation-backend/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 100
)

// Event types published on organisation topics.
const (
	EventQRGenerated         = "qr_generated"
	EventSessionDisconnected = "session_disconnected"
	EventAccountStatus       = "account_status"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// OrgTopic is the topic every pairing/account event of an organisation lands on.
func OrgTopic(orgID int64) string {
	return fmt.Sprintf("org:%d", orgID)
}

type Client struct {
	Topic  string
	Events chan Event
	Done   chan struct{}
}

// Broker fans Redis pub/sub messages out to local SSE clients. Publishing goes
// through Redis so every instance's subscribers see the event.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // topic -> set of clients
	cancels map[string]context.CancelFunc
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		cancels: make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(topic string) *Client {
	client := &Client{
		Topic:  topic,
		Events: make(chan Event, clientBufferSize),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[topic] == nil {
		b.clients[topic] = make(map[*Client]bool)
		subCtx, subCancel := context.WithCancel(b.ctx)
		b.cancels[topic] = subCancel
		go b.subscribeToRedis(subCtx, topic)
	}
	b.clients[topic][client] = true
	clientCount := len(b.clients[topic])
	b.mu.Unlock()

	log.Info().
		Str("topic", topic).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, ok := b.clients[client.Topic]
	if !ok || !clients[client] {
		return
	}

	delete(clients, client)
	close(client.Done)

	if len(clients) == 0 {
		delete(b.clients, client.Topic)
		if cancel := b.cancels[client.Topic]; cancel != nil {
			cancel()
			delete(b.cancels, client.Topic)
		}
	}

	log.Info().
		Str("topic", client.Topic).
		Int("clientCount", len(clients)).
		Msg("sse client unsubscribed")
}

// Publish marshals payload and sends it to every subscriber of topic.
func (b *Broker) Publish(ctx context.Context, topic, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return err
	}

	return b.redis.Publish(ctx, redisclient.TopicChannel(topic), msg).Err()
}

func (b *Broker) subscribeToRedis(ctx context.Context, topic string) {
	channel := redisclient.TopicChannel(topic)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("topic", topic).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Str("topic", topic).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(topic, event)
		}
	}
}

func (b *Broker) broadcast(topic string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[topic] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("topic", topic).
				Str("type", event.Type).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.cancels = make(map[string]context.CancelFunc)
}

func (b *Broker) ClientCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[topic])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
