package queue

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "go.mongodb.org/mongo-driver/bson"
    "go.mongodb.org/mongo-driver/mongo"
    "go.mongodb.org/mongo-driver/mongo/options"
)

// FileSink appends one human-friendly line per event to
// <dir>/reservations.log.
type FileSink struct {
    Dir string
    mu  sync.Mutex
}

// NewFileSink returns a FileSink writing under dir ("logs" when empty).
func NewFileSink(dir string) *FileSink {
    if dir == "" {
        dir = "logs"
    }
    return &FileSink{Dir: dir}
}

func (s *FileSink) Write(_ context.Context, ev ReservationEvent) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if err := os.MkdirAll(s.Dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(s.Dir, "reservations.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] %s | reservation_id=%s | confirmation=%s | kind=%s | targets=[%s] | %s..%s | state=%s | guest=%q | total=%d cents | deposit=%d cents\n",
        ev.OccurredAt, ev.Event, ev.ReservationID, ev.ConfirmationNumber, ev.Kind,
        strings.Join(ev.Targets, ","), ev.StartsAt, ev.EndsAt, ev.State, ev.GuestName,
        ev.TotalAmountCents, ev.DepositCents)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// MongoSink keeps an audit trail of reservation events in MongoDB.  Each
// event is upserted by its id, so a redelivered message leaves a single
// document.
type MongoSink struct {
    col *mongo.Collection
    now func() time.Time
}

// NewMongoSink returns a sink writing to db.reservation_events.
func NewMongoSink(client *mongo.Client, database string) *MongoSink {
    return &MongoSink{
        col: client.Database(database).Collection("reservation_events"),
        now: time.Now,
    }
}

// ConnectMongo connects and pings with a timeout.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
    ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
    if err != nil {
        return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
    }
    if err := client.Ping(ctx, nil); err != nil {
        _ = client.Disconnect(context.Background())
        return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
    }
    return client, nil
}

func (s *MongoSink) Write(ctx context.Context, ev ReservationEvent) error {
    filter := bson.M{"_id": ev.EventID}
    update := bson.M{
        "$setOnInsert": bson.M{
            "event":               ev.Event,
            "reservation_id":      ev.ReservationID,
            "confirmation_number": ev.ConfirmationNumber,
            "kind":                ev.Kind,
            "targets":             ev.Targets,
            "starts_at":           ev.StartsAt,
            "ends_at":             ev.EndsAt,
            "state":               ev.State,
            "guest_name":          ev.GuestName,
            "guest_email":         ev.GuestEmail,
            "guest_count":         ev.GuestCount,
            "total_amount_cents":  ev.TotalAmountCents,
            "deposit_cents":       ev.DepositCents,
            "refund_cents":        ev.RefundCents,
            "occurred_at":         ev.OccurredAt,
            "recorded_at":         s.now().UTC(),
        },
    }
    _, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
    if err != nil {
        return fmt.Errorf("upsert reservation event: %w", err)
    }
    return nil
}

// ByReservation returns the recorded events of one reservation, oldest
// first.
func (s *MongoSink) ByReservation(ctx context.Context, reservationID string) ([]ReservationEvent, error) {
    cur, err := s.col.Find(ctx, bson.M{"reservation_id": reservationID},
        options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}))
    if err != nil {
        return nil, err
    }
    defer cur.Close(ctx)
    var out []ReservationEvent
    if err := cur.All(ctx, &out); err != nil {
        return nil, err
    }
    return out, nil
}
