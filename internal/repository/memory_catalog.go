package repository

import (
    "context"
    "sort"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// MemoryCatalog serves reference data from maps.  It is read-only after
// construction and therefore safe for concurrent use.
type MemoryCatalog struct {
    rooms      map[string]model.Room
    services   map[string]model.Service
    eventTypes map[string]model.EventType
}

// NewMemoryCatalog builds a catalog from the given slices.
func NewMemoryCatalog(rooms []model.Room, services []model.Service, eventTypes []model.EventType) *MemoryCatalog {
    c := &MemoryCatalog{
        rooms:      make(map[string]model.Room, len(rooms)),
        services:   make(map[string]model.Service, len(services)),
        eventTypes: make(map[string]model.EventType, len(eventTypes)),
    }
    for _, r := range rooms {
        c.rooms[r.ID] = r
    }
    for _, s := range services {
        c.services[s.ID] = s
    }
    for _, e := range eventTypes {
        c.eventTypes[e.ID] = e
    }
    return c
}

// NewSeededCatalog returns the venue's default catalog: rooms "A".."O",
// two event halls, two spa cabins, event extras, spa treatments and event
// types.  The same rows are inserted by the MySQL seed.
func NewSeededCatalog() *MemoryCatalog {
    return NewMemoryCatalog(SeedRooms(), SeedServices(), SeedEventTypes())
}

// SeedRooms lists the default bookable targets.
func SeedRooms() []model.Room {
    var rooms []model.Room
    for _, id := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
        rooms = append(rooms, model.Room{ID: id, Name: "Room " + id, Category: model.CategorySingleKing, Capacity: 2, RateCents: 240000, Active: true})
    }
    for _, id := range []string{"I", "J", "K", "L", "M", "N", "O"} {
        rooms = append(rooms, model.Room{ID: id, Name: "Room " + id, Category: model.CategoryDoubleMatrimonial, Capacity: 4, RateCents: 320000, Active: true})
    }
    rooms = append(rooms,
        model.Room{ID: "garden-hall", Name: "Garden Hall", Category: model.CategoryEventHall, Capacity: 150, RateCents: 0, Active: true},
        model.Room{ID: "terrace-hall", Name: "Terrace Hall", Category: model.CategoryEventHall, Capacity: 80, RateCents: 0, Active: true},
        model.Room{ID: "spa-1", Name: "Spa Cabin 1", Category: model.CategorySpaCabin, Capacity: 2, RateCents: 0, Active: true},
        model.Room{ID: "spa-2", Name: "Spa Cabin 2", Category: model.CategorySpaCabin, Capacity: 2, RateCents: 0, Active: true},
    )
    return rooms
}

// SeedServices lists the default extras and treatments.
func SeedServices() []model.Service {
    return []model.Service{
        {ID: "catering", Name: "Catering", Kind: model.KindEvent, PriceCents: 1500000},
        {ID: "decoration", Name: "Decoration", Kind: model.KindEvent, PriceCents: 450000},
        {ID: "music", Name: "Live music", Kind: model.KindEvent, PriceCents: 800000},
        {ID: "relaxing", Name: "Relaxing massage", Kind: model.KindMassage, PriceCents: 90000},
        {ID: "hot-stones", Name: "Hot stones", Kind: model.KindMassage, PriceCents: 120000},
        {ID: "facial", Name: "Facial", Kind: model.KindMassage, PriceCents: 70000},
    }
}

// SeedEventTypes lists the default event packages.
func SeedEventTypes() []model.EventType {
    return []model.EventType{
        {ID: "wedding", Name: "Wedding", BasePriceCents: 5000000},
        {ID: "corporate", Name: "Corporate", BasePriceCents: 2500000},
        {ID: "private", Name: "Private party", BasePriceCents: 1200000},
    }
}

func (c *MemoryCatalog) GetRoom(_ context.Context, id string) (*model.Room, error) {
    r, ok := c.rooms[id]
    if !ok {
        return nil, ErrNotFound
    }
    return &r, nil
}

func (c *MemoryCatalog) ListRooms(_ context.Context) ([]model.Room, error) {
    out := make([]model.Room, 0, len(c.rooms))
    for _, r := range c.rooms {
        out = append(out, r)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (c *MemoryCatalog) GetService(_ context.Context, id string) (*model.Service, error) {
    s, ok := c.services[id]
    if !ok {
        return nil, ErrNotFound
    }
    return &s, nil
}

func (c *MemoryCatalog) GetEventType(_ context.Context, id string) (*model.EventType, error) {
    e, ok := c.eventTypes[id]
    if !ok {
        return nil, ErrNotFound
    }
    return &e, nil
}
