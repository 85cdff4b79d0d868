package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// CatalogRepo reads rooms, services and event types from MySQL.  The
// catalog is reference data; it is written only by the schema seed.
type CatalogRepo struct {
    db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// GetRoom returns the room with the given identifier or ErrNotFound.
func (r *CatalogRepo) GetRoom(ctx context.Context, id string) (*model.Room, error) {
    const q = `SELECT id, name, category, capacity, rate_cents, active FROM rooms WHERE id = ?`
    var room model.Room
    var category string
    err := r.db.QueryRowContext(ctx, q, id).Scan(&room.ID, &room.Name, &category, &room.Capacity, &room.RateCents, &room.Active)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    room.Category = model.Category(category)
    return &room, nil
}

// ListRooms returns every room ordered by identifier.
func (r *CatalogRepo) ListRooms(ctx context.Context) ([]model.Room, error) {
    const q = `SELECT id, name, category, capacity, rate_cents, active FROM rooms ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Room, 0)
    for rows.Next() {
        var room model.Room
        var category string
        if err := rows.Scan(&room.ID, &room.Name, &category, &room.Capacity, &room.RateCents, &room.Active); err != nil {
            return nil, err
        }
        room.Category = model.Category(category)
        out = append(out, room)
    }
    return out, rows.Err()
}

// GetService returns the service with the given identifier or ErrNotFound.
func (r *CatalogRepo) GetService(ctx context.Context, id string) (*model.Service, error) {
    const q = `SELECT id, name, kind, price_cents FROM services WHERE id = ?`
    var s model.Service
    var kind string
    if err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Name, &kind, &s.PriceCents); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    s.Kind = model.Kind(kind)
    return &s, nil
}

// GetEventType returns the event type with the given identifier or ErrNotFound.
func (r *CatalogRepo) GetEventType(ctx context.Context, id string) (*model.EventType, error) {
    const q = `SELECT id, name, base_price_cents FROM event_types WHERE id = ?`
    var e model.EventType
    if err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.Name, &e.BasePriceCents); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    return &e, nil
}
