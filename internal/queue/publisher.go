package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const notificationQueueName = "portfolio.notifications"

// Publisher emits notification events to the broker. Publishing is
// fire-and-forget: a broker outage is logged and the request that triggered
// the event still succeeds. A nil Publisher or one built from an empty URL
// silently drops events, which keeps local development broker-free.
type Publisher struct {
	url string
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url, log: log}
}

// Publish serializes the event and sends it to the durable notification
// queue. All failures are swallowed after logging.
func (p *Publisher) Publish(ev NotificationEvent) {
	if p == nil {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("notification marshal failed", zap.Error(err), zap.String("kind", ev.Kind))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.Warn("notification broker unavailable", zap.Error(err), zap.String("kind", ev.Kind))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err = ch.PublishWithContext(ctx, "", notificationQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		// drop the cached channel so the next publish redials
		p.reset()
		p.log.Warn("notification publish failed", zap.Error(err), zap.String("kind", ev.Kind))
		return
	}
	p.log.Debug("notification published", zap.String("kind", ev.Kind), zap.Uint64("user_id", ev.UserID))
}

// channel returns the cached channel, dialing and declaring the queue on
// first use or after a reset. Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(notificationQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
