package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// DefaultQueue is the queue reservation events are routed to.
const DefaultQueue = "reservation.events"

// Publisher sends reservation events to RabbitMQ.  It dials per publish:
// reservation changes are infrequent and a fresh connection survives
// broker restarts without any reconnect bookkeeping.  Errors are logged
// and returned so the caller can choose to ignore them.
type Publisher struct {
    url   string
    queue string
    log   *slog.Logger
    now   func() time.Time
}

// NewPublisher returns a Publisher for the given broker URL and queue.
func NewPublisher(url, queue string, logger *slog.Logger) *Publisher {
    if queue == "" {
        queue = DefaultQueue
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &Publisher{url: url, queue: queue, log: logger, now: time.Now}
}

// Notify publishes one event for r.  It implements the booking notifier.
func (p *Publisher) Notify(ctx context.Context, event string, r model.Reservation) error {
    return p.Publish(ctx, NewReservationEvent(event, r, p.now()))
}

// Publish sends ev as a persistent JSON message on the durable queue.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Error("rabbitmq dial failed", "error", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Error("rabbitmq channel open failed", "error", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        p.queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        p.log.Error("rabbitmq queue declare failed", "queue", p.queue, "error", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         ev.Event,
        Timestamp:    p.now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        p.log.Error("rabbitmq publish failed", "queue", p.queue, "event", ev.Event, "error", err)
        return err
    }
    p.log.Debug("event published", "event", ev.Event, "reservation_id", ev.ReservationID)
    return nil
}

// LogNotifier records events in the application log.  It stands in for
// the broker when RABBITMQ_URL is not set.
type LogNotifier struct {
    Log *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, event string, r model.Reservation) error {
    n.Log.Info("reservation event", "event", event, "reservation_id", r.ID,
        "confirmation", r.ConfirmationNumber, "state", r.State)
    return nil
}
