package booking

import (
    "context"
    "errors"
    "fmt"
    "reflect"
    "sort"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"

    "github.com/iliyamo/venue-reservation/internal/model"
    "github.com/iliyamo/venue-reservation/internal/repository"
)

// Request is a booking request as submitted by a guest.  Prices are never
// taken from the request; any client-side total is ignored.
type Request struct {
    Kind        model.Kind    `json:"kind" validate:"required,oneof=room event massage"`
    Targets     []string      `json:"targets" validate:"required,min=1,max=15,dive,required"`
    Start       time.Time     `json:"start" validate:"required"`
    End         time.Time     `json:"end"`
    EventTypeID string        `json:"event_type_id,omitempty"`
    ServiceIDs  []string      `json:"service_ids,omitempty" validate:"omitempty,max=20,dive,required"`
    Contact     model.Contact `json:"contact" validate:"required"`
    GuestCount  int           `json:"guest_count" validate:"required,min=1"`
    Notes       string        `json:"notes,omitempty" validate:"max=2000"`
}

// Validate checks struct tags.  Field names in errors are the JSON names.
var Validate = newValidator()

func newValidator() *validator.Validate {
    v := validator.New()
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return v
}

// fieldErrors converts validator output to a ValidationError.
func fieldErrors(err error) error {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return &ValidationError{Fields: map[string]string{"request": err.Error()}}
    }
    fields := make(map[string]string, len(verrs))
    for _, fe := range verrs {
        ns := fe.Namespace()
        if i := strings.IndexByte(ns, '.'); i >= 0 {
            ns = ns[i+1:]
        }
        reason := fe.Tag()
        if fe.Param() != "" {
            reason += "=" + fe.Param()
        }
        fields[ns] = reason
    }
    return &ValidationError{Fields: fields}
}

// resolved is a request after validation and catalog lookup.
type resolved struct {
    kind      model.Kind
    targets   []string
    window    model.DateRange
    rooms     []model.Room
    eventType *model.EventType
    services  []model.Service
    guests    int
}

func (r *resolved) priceInput() PriceInput {
    return PriceInput{
        Kind:       r.kind,
        Rooms:      r.rooms,
        Window:     r.window,
        EventType:  r.eventType,
        Services:   r.services,
        GuestCount: r.guests,
    }
}

// kindRules holds what differs between room, event and massage bookings.
// The rules are selected once per request from rulesByKind.
type kindRules struct {
    // window derives the occupied interval from the request.
    window func(req *Request, cfg Config) model.DateRange
    // check validates the kind-specific fields and loads the event type
    // and services the price depends on.
    check func(ctx context.Context, cat repository.Catalog, req *Request, out *resolved, fields map[string]string) error
}

var rulesByKind = map[model.Kind]kindRules{
    model.KindRoom: {
        window: func(req *Request, _ Config) model.DateRange {
            return model.DateRange{Start: req.Start.UTC(), End: req.End.UTC()}
        },
        check: func(_ context.Context, _ repository.Catalog, req *Request, _ *resolved, fields map[string]string) error {
            if req.End.After(req.Start) && req.End.Sub(req.Start) < 24*time.Hour {
                fields["end"] = "room stays last at least one night"
            }
            if len(req.ServiceIDs) > 0 {
                fields["service_ids"] = "not available for room bookings"
            }
            if req.EventTypeID != "" {
                fields["event_type_id"] = "not available for room bookings"
            }
            return nil
        },
    },
    model.KindEvent: {
        window: func(req *Request, _ Config) model.DateRange {
            return model.DateRange{Start: req.Start.UTC(), End: req.End.UTC()}
        },
        check: func(ctx context.Context, cat repository.Catalog, req *Request, out *resolved, fields map[string]string) error {
            if req.End.After(req.Start) && req.End.UTC().After(nextMidnight(req.Start)) {
                fields["end"] = "events end on their start date or at the following midnight"
            }
            if req.EventTypeID == "" {
                fields["event_type_id"] = "required"
            } else {
                et, err := cat.GetEventType(ctx, req.EventTypeID)
                if err != nil {
                    return catalogErr("event type", req.EventTypeID, err)
                }
                out.eventType = et
            }
            return loadServices(ctx, cat, req, model.KindEvent, out, fields)
        },
    },
    model.KindMassage: {
        window: func(req *Request, cfg Config) model.DateRange {
            start := req.Start.UTC()
            return model.DateRange{Start: start, End: start.Add(cfg.MassageDuration)}
        },
        check: func(ctx context.Context, cat repository.Catalog, req *Request, out *resolved, fields map[string]string) error {
            if len(req.ServiceIDs) == 0 {
                fields["service_ids"] = "at least one treatment is required"
            }
            if req.EventTypeID != "" {
                fields["event_type_id"] = "not available for massage bookings"
            }
            return loadServices(ctx, cat, req, model.KindMassage, out, fields)
        },
    },
}

// nextMidnight returns the first instant of the day after t, in UTC.
func nextMidnight(t time.Time) time.Time {
    t = t.UTC()
    return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}

func loadServices(ctx context.Context, cat repository.Catalog, req *Request, kind model.Kind, out *resolved, fields map[string]string) error {
    seen := map[string]bool{}
    for _, id := range req.ServiceIDs {
        if seen[id] {
            fields["service_ids"] = "duplicate service " + id
            continue
        }
        seen[id] = true
        s, err := cat.GetService(ctx, id)
        if err != nil {
            return catalogErr("service", id, err)
        }
        if s.Kind != kind {
            fields["service_ids"] = fmt.Sprintf("service %s is not offered for %s bookings", id, kind)
            continue
        }
        out.services = append(out.services, *s)
    }
    return nil
}

func catalogErr(what, id string, err error) error {
    if errors.Is(err, repository.ErrNotFound) {
        return fmt.Errorf("%w: %s %q", ErrNotFound, what, id)
    }
    return &PersistenceError{Op: "catalog lookup", Err: err}
}

// resolve validates req and loads every catalog entry it references.
// Validation failures are collected into one ValidationError; a missing
// catalog entry is reported as ErrNotFound.
func (s *Service) resolve(ctx context.Context, req Request) (*resolved, error) {
    if err := Validate.Struct(req); err != nil {
        return nil, fieldErrors(err)
    }
    rules := rulesByKind[req.Kind]
    out := &resolved{kind: req.Kind, guests: req.GuestCount}
    fields := map[string]string{}

    out.window = rules.window(&req, s.cfg)
    if !out.window.Valid() {
        fields["end"] = "must be after start"
    }

    seen := map[string]bool{}
    capacity := 0
    for _, id := range req.Targets {
        if seen[id] {
            fields["targets"] = "duplicate target " + id
            continue
        }
        seen[id] = true
        room, err := s.catalog.GetRoom(ctx, id)
        if err != nil {
            return nil, catalogErr("room", id, err)
        }
        switch {
        case !room.Active:
            fields["targets"] = fmt.Sprintf("%s is not bookable", id)
        case !room.Accepts(req.Kind):
            fields["targets"] = fmt.Sprintf("%s cannot be booked for %s", id, req.Kind)
        }
        capacity += room.Capacity
        out.rooms = append(out.rooms, *room)
        out.targets = append(out.targets, id)
    }
    sort.Strings(out.targets)
    sort.Slice(out.rooms, func(i, j int) bool { return out.rooms[i].ID < out.rooms[j].ID })
    if req.GuestCount > capacity {
        fields["guest_count"] = fmt.Sprintf("exceeds capacity %d", capacity)
    }

    if err := rules.check(ctx, s.catalog, &req, out, fields); err != nil {
        return nil, err
    }
    if len(fields) > 0 {
        return nil, &ValidationError{Fields: fields}
    }
    return out, nil
}
