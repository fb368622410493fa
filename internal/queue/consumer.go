package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StartNotificationConsumer drains the notification queue into
// logs/notifications.log, one line per event. It stands in for the mail
// sender; swapping in a real delivery channel only means replacing
// handleMessage. The function runs a reconnect loop with capped backoff and
// never returns under normal operation.
func StartNotificationConsumer(url string, log *zap.Logger) error {
	if url == "" {
		return errors.New("broker url not configured")
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("notification consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, log); err != nil {
			log.Warn("notification consume loop ended", zap.Error(err))
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(notificationQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(notificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Warn("notification handling failed", zap.Error(err))
			_ = d.Nack(false, false) // do not requeue, avoids tight redelivery loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "notifications.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	to := ev.Email
	if to == "" {
		to = fmt.Sprintf("user:%d", ev.UserID)
	}
	line := fmt.Sprintf("[%s] %s | to=%s | subject=%q | body=%q | link=%s\n",
		ev.OccurredAt, ev.Kind, to, ev.Subject, ev.Body, ev.Link)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
