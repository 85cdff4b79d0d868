package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Sink records one consumed event.  Sinks must tolerate the same event
// being delivered more than once.
type Sink interface {
    Write(ctx context.Context, ev ReservationEvent) error
}

// Consumer reads reservation events from RabbitMQ and hands each one to
// every sink.  A message is acked only when all sinks succeed; otherwise
// it is rejected without requeue so a poison message cannot loop.
type Consumer struct {
    url   string
    queue string
    sinks []Sink
    log   *slog.Logger
}

// NewConsumer returns a Consumer for the given broker URL and queue.
func NewConsumer(url, queue string, logger *slog.Logger, sinks ...Sink) *Consumer {
    if queue == "" {
        queue = DefaultQueue
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &Consumer{url: url, queue: queue, sinks: sinks, log: logger}
}

// Run connects, declares the durable queue and consumes until ctx is
// cancelled.  Connection failures are retried with exponential backoff
// capped at 30s.  It returns ctx.Err() on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("consumer: failed to dial broker", "error", err, "retry_in", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("consumer: consume loop ended, reconnecting", "error", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("consumer: set QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Handle(ctx, d.Body); err != nil {
                c.log.Error("consumer: handle message failed", "message_id", d.MessageId, "error", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body and writes it to every sink.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.EventID == "" || ev.Event == "" {
        return errors.New("event without id or name")
    }
    var errs []error
    for _, s := range c.sinks {
        if err := s.Write(ctx, ev); err != nil {
            errs = append(errs, err)
        }
    }
    return errors.Join(errs...)
}
