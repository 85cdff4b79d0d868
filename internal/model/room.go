package model

// Category classifies a bookable target.
type Category string

const (
    CategorySingleKing        Category = "single-king"
    CategoryDoubleMatrimonial Category = "double-matrimonial"
    CategoryEventHall         Category = "event-hall"
    CategorySpaCabin          Category = "spa-cabin"
)

// Room represents a bookable target: a hotel room, an event hall or a spa
// cabin.  Rooms are reference data; rates and capacities are edited only
// through catalog management.
//
// Fields:
//  ID        – stable identifier (letter code "A".."O" or a space name).
//  Name      – display name.
//  Category  – room category, determines which kinds may book it.
//  Capacity  – maximum occupants.
//  RateCents – nightly rate for rooms, base rate for halls and cabins.
//  Active    – inactive targets cannot be booked.
type Room struct {
    ID        string   `json:"id"`         // rooms.id
    Name      string   `json:"name"`       // rooms.name
    Category  Category `json:"category"`   // rooms.category
    Capacity  int      `json:"capacity"`   // rooms.capacity
    RateCents int64    `json:"rate_cents"` // rooms.rate_cents
    Active    bool     `json:"active"`     // rooms.active
}

// Accepts reports whether a booking of kind k may occupy this target.
func (r Room) Accepts(k Kind) bool {
    switch k {
    case KindRoom:
        return r.Category == CategorySingleKing || r.Category == CategoryDoubleMatrimonial
    case KindEvent:
        return r.Category == CategoryEventHall
    case KindMassage:
        return r.Category == CategorySpaCabin
    }
    return false
}

// Service is a priced extra: event services (catering, decoration) or spa
// treatments.  Kind names the reservation kind the service belongs to.
type Service struct {
    ID         string `json:"id"`          // services.id
    Name       string `json:"name"`        // services.name
    Kind       Kind   `json:"kind"`        // services.kind
    PriceCents int64  `json:"price_cents"` // services.price_cents
}

// EventType carries the base price of an event package (wedding,
// corporate, private party, ...).
type EventType struct {
    ID             string `json:"id"`               // event_types.id
    Name           string `json:"name"`             // event_types.name
    BasePriceCents int64  `json:"base_price_cents"` // event_types.base_price_cents
}
