package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"parkhub/internal/repository"
	"parkhub/internal/service"
	"parkhub/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the reservation.closed and export.requested queues. It
// runs a reconnect loop with exponential backoff and keeps going until the
// context is cancelled; failed messages are rejected without requeue so a
// poison message cannot wedge the worker.
type Consumer struct {
	URL          string
	Reservations *repository.ReservationRepository
	Users        *repository.UserRepository
	Sender       *service.SenderService
	Export       *service.ExportService
	ExportDir    string
}

func NewConsumer(reservations *repository.ReservationRepository, users *repository.UserRepository, sender *service.SenderService, export *service.ExportService) *Consumer {
	dir := os.Getenv("EXPORT_DIR")
	if dir == "" {
		dir = "exports"
	}
	return &Consumer{
		URL:          brokerURL(),
		Reservations: reservations,
		Users:        users,
		Sender:       sender,
		Export:       export,
		ExportDir:    dir,
	}
}

// Run connects and consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("queue-consumer: dial failed: %v; retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consume(ctx, conn); err != nil {
			log.Printf("queue-consumer: consume loop ended: %v; reconnecting", err)
		}
		_ = conn.Close()
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Printf("queue-consumer: set QoS failed: %v", err)
	}
	for _, name := range []string{ReservationClosedQueue, ExportRequestedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	closedMsgs, err := ch.Consume(ReservationClosedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ReservationClosedQueue, err)
	}
	exportMsgs, err := ch.Consume(ExportRequestedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ExportRequestedQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-closedMsgs:
			if !ok {
				return fmt.Errorf("%s channel closed", ReservationClosedQueue)
			}
			c.ack(d, c.handleClosed(ctx, d.Body))
		case d, ok := <-exportMsgs:
			if !ok {
				return fmt.Errorf("%s channel closed", ExportRequestedQueue)
			}
			c.ack(d, c.handleExport(ctx, d.Body))
		}
	}
}

func (c *Consumer) ack(d amqp.Delivery, err error) {
	if err != nil {
		log.Printf("queue-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) handleClosed(ctx context.Context, body []byte) error {
	var ev ReservationClosedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal closed event: %w", err)
	}
	detail, err := c.Reservations.DetailByID(ctx, ev.ReservationID)
	if err != nil {
		return fmt.Errorf("load reservation %d: %w", ev.ReservationID, err)
	}
	return c.Sender.SendReservationReceipt(*detail)
}

func (c *Consumer) handleExport(ctx context.Context, body []byte) error {
	var ev ExportRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal export event: %w", err)
	}
	user, err := c.Users.ByID(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", ev.UserID, err)
	}

	if err := os.MkdirAll(c.ExportDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	now := time.Now().UTC()
	filename := fmt.Sprintf("%s-%s.csv", utils.SafeFilename(user.Name), now.Format("2006-01-02-15-04"))
	path := filepath.Join(c.ExportDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := c.Export.WriteCSV(ctx, f, ev.UserID); err != nil {
		_ = f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("export for user %d written to %s", ev.UserID, path)

	if err := c.Sender.SendExportReady(user.Username, user.Name, filename); err != nil {
		// The export itself succeeded; a failed notification is logged only.
		log.Printf("export notification to %s failed: %v", user.Username, err)
	}
	return nil
}
