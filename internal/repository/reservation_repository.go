package repository

import (
    "context"
    "database/sql"
    "errors"
    "sort"
    "strings"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// ReservationRepo is the MySQL implementation of ReservationStore.
// Reservations live in the reservations table; the targets they occupy
// are stored in reservation_targets together with a copy of the window so
// the conflict query can use the (target_id, starts_at, ends_at) index.
// Selected extras are stored in reservation_services.  All timestamps are
// stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `r.id, r.confirmation_number, r.kind, r.event_type_id,
        r.starts_at, r.ends_at,
        r.contact_name, r.contact_surname, r.contact_email, r.contact_phone,
        r.guest_count, r.subtotal_cents, r.deposit_cents, r.tax_cents, r.total_cents,
        r.state, r.assigned_admin_id, r.payment_ref, r.needs_reconciliation,
        r.refund_cents, r.notes, r.created_at, r.updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
    var (
        res        model.Reservation
        eventType  sql.NullString
        assigned   sql.NullString
        paymentRef sql.NullString
        notes      sql.NullString
        kind       string
        state      string
    )
    err := row.Scan(
        &res.ID, &res.ConfirmationNumber, &kind, &eventType,
        &res.Window.Start, &res.Window.End,
        &res.Contact.Name, &res.Contact.Surname, &res.Contact.Email, &res.Contact.Phone,
        &res.GuestCount, &res.Price.SubtotalCents, &res.Price.DepositCents, &res.Price.TaxCents, &res.Price.TotalCents,
        &state, &assigned, &paymentRef, &res.NeedsReconciliation,
        &res.RefundCents, &notes, &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    res.Kind = model.Kind(kind)
    res.State = model.State(state)
    res.EventTypeID = eventType.String
    res.AssignedAdminID = assigned.String
    res.PaymentRef = paymentRef.String
    res.Notes = notes.String
    res.Window.Start = res.Window.Start.UTC()
    res.Window.End = res.Window.End.UTC()
    return &res, nil
}

// loadChildren fills Targets and ServiceIDs for the given reservations.
func loadChildren(ctx context.Context, q queryer, list []*model.Reservation) error {
    if len(list) == 0 {
        return nil
    }
    byID := make(map[string]*model.Reservation, len(list))
    ids := make([]interface{}, 0, len(list))
    for _, r := range list {
        byID[r.ID] = r
        r.Targets = []string{}
        r.ServiceIDs = []string{}
        ids = append(ids, r.ID)
    }
    in := placeholders(len(ids))
    rows, err := q.QueryContext(ctx, `SELECT reservation_id, target_id FROM reservation_targets WHERE reservation_id IN (`+in+`) ORDER BY target_id`, ids...)
    if err != nil {
        return err
    }
    for rows.Next() {
        var rid, tid string
        if err := rows.Scan(&rid, &tid); err != nil {
            rows.Close()
            return err
        }
        byID[rid].Targets = append(byID[rid].Targets, tid)
    }
    if err := rows.Err(); err != nil {
        rows.Close()
        return err
    }
    rows.Close()
    rows, err = q.QueryContext(ctx, `SELECT reservation_id, service_id FROM reservation_services WHERE reservation_id IN (`+in+`) ORDER BY service_id`, ids...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var rid, sid string
        if err := rows.Scan(&rid, &sid); err != nil {
            return err
        }
        byID[rid].ServiceIDs = append(byID[rid].ServiceIDs, sid)
    }
    return rows.Err()
}

func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func getReservation(ctx context.Context, q queryer, id string, forUpdate bool) (*model.Reservation, error) {
    query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = ?`
    if forUpdate {
        query += ` FOR UPDATE`
    }
    res, err := scanReservation(q.QueryRowContext(ctx, query, id))
    if err != nil {
        return nil, err
    }
    if err := loadChildren(ctx, q, []*model.Reservation{res}); err != nil {
        return nil, err
    }
    return res, nil
}

// claimQuery writes an assignment only while the column is still NULL.
const claimQuery = `UPDATE reservations SET assigned_admin_id = ? WHERE id = ? AND assigned_admin_id IS NULL`

// lockTargetsQuery builds the SELECT ... FOR UPDATE that locks the catalog
// rows of targets.  Ids are deduplicated and sorted so every transaction
// acquires its locks in the same order.
func lockTargetsQuery(targets []string) (string, []interface{}) {
    sorted := append([]string(nil), targets...)
    sort.Strings(sorted)
    args := make([]interface{}, 0, len(sorted))
    for i, id := range sorted {
        if i > 0 && id == sorted[i-1] {
            continue
        }
        args = append(args, id)
    }
    return `SELECT id FROM rooms WHERE id IN (` + placeholders(len(args)) + `) ORDER BY id FOR UPDATE`, args
}

// overlapQuery selects active reservations on targets whose interval
// intersects window.  The test is half-open: starts_at < window.End AND
// ends_at > window.Start, so back-to-back stays do not collide.
func overlapQuery(targets []string, window model.DateRange, excludeID string) (string, []interface{}) {
    args := make([]interface{}, 0, len(targets)+3)
    for _, id := range targets {
        args = append(args, id)
    }
    args = append(args, window.End.UTC(), window.Start.UTC(), excludeID)
    q := `SELECT r.id, r.confirmation_number, rt.target_id, rt.starts_at, rt.ends_at
          FROM reservation_targets rt
          JOIN reservations r ON r.id = rt.reservation_id
          WHERE rt.target_id IN (` + placeholders(len(targets)) + `)
            AND rt.starts_at < ? AND rt.ends_at > ?
            AND r.id <> ?
            AND r.state IN ('pending','confirmed')
          ORDER BY rt.target_id, rt.starts_at`
    return q, args
}

func listQuery(f Filter) (string, []interface{}) {
    var (
        where []string
        args  []interface{}
    )
    if f.State != "" {
        where = append(where, "r.state = ?")
        args = append(args, string(f.State))
    }
    if f.Kind != "" {
        where = append(where, "r.kind = ?")
        args = append(args, string(f.Kind))
    }
    if f.AssignedTo != "" {
        where = append(where, "r.assigned_admin_id = ?")
        args = append(args, f.AssignedTo)
    }
    if f.Unassigned {
        where = append(where, "r.assigned_admin_id IS NULL")
    }
    if f.TargetID != "" {
        where = append(where, "EXISTS (SELECT 1 FROM reservation_targets rt WHERE rt.reservation_id = r.id AND rt.target_id = ?)")
        args = append(args, f.TargetID)
    }
    q := `SELECT ` + reservationColumns + ` FROM reservations r`
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    q += " ORDER BY r.created_at, r.id"
    if f.Limit > 0 {
        q += " LIMIT ? OFFSET ?"
        args = append(args, f.Limit, f.Offset)
    }
    return q, args
}

// mysqlTx implements ReservationTx over a *sql.Tx.
type mysqlTx struct {
    tx *sql.Tx
}

// Overlapping joins reservation_targets with reservations so only active
// reservations are reported.  The half-open overlap test is
// starts_at < window.End AND ends_at > window.Start.
func (t *mysqlTx) Overlapping(ctx context.Context, targets []string, window model.DateRange, excludeID string) ([]Overlap, error) {
    if len(targets) == 0 {
        return nil, nil
    }
    q, args := overlapQuery(targets, window, excludeID)
    rows, err := t.tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []Overlap
    for rows.Next() {
        var o Overlap
        if err := rows.Scan(&o.ReservationID, &o.ConfirmationNumber, &o.TargetID, &o.Window.Start, &o.Window.End); err != nil {
            return nil, err
        }
        o.Window.Start = o.Window.Start.UTC()
        o.Window.End = o.Window.End.UTC()
        out = append(out, o)
    }
    return out, rows.Err()
}

// Insert writes the reservation row, its targets and its services.
func (t *mysqlTx) Insert(ctx context.Context, r *model.Reservation) error {
    const q = `INSERT INTO reservations (id, confirmation_number, kind, event_type_id, starts_at, ends_at,
                   contact_name, contact_surname, contact_email, contact_phone, guest_count,
                   subtotal_cents, deposit_cents, tax_cents, total_cents, state,
                   assigned_admin_id, payment_ref, needs_reconciliation, refund_cents, notes)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    _, err := t.tx.ExecContext(ctx, q,
        r.ID, r.ConfirmationNumber, string(r.Kind), nullString(r.EventTypeID),
        r.Window.Start.UTC(), r.Window.End.UTC(),
        r.Contact.Name, r.Contact.Surname, r.Contact.Email, r.Contact.Phone, r.GuestCount,
        r.Price.SubtotalCents, r.Price.DepositCents, r.Price.TaxCents, r.Price.TotalCents, string(r.State),
        nullString(r.AssignedAdminID), nullString(r.PaymentRef), r.NeedsReconciliation, r.RefundCents, nullString(r.Notes),
    )
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicateConfirmation
        }
        return err
    }
    if err := t.insertTargets(ctx, r); err != nil {
        return err
    }
    if len(r.ServiceIDs) > 0 {
        query := `INSERT INTO reservation_services (reservation_id, service_id) VALUES `
        args := make([]interface{}, 0, len(r.ServiceIDs)*2)
        for i, s := range r.ServiceIDs {
            if i > 0 {
                query += ","
            }
            query += "(?, ?)"
            args = append(args, r.ID, s)
        }
        if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    // Query back the timestamps set by the database defaults.
    return t.tx.QueryRowContext(ctx, `SELECT created_at, updated_at FROM reservations WHERE id = ?`, r.ID).
        Scan(&r.CreatedAt, &r.UpdatedAt)
}

// insertTargets inserts multiple reservation_targets rows in a single
// statement, copying the reservation window onto each row.
func (t *mysqlTx) insertTargets(ctx context.Context, r *model.Reservation) error {
    if len(r.Targets) == 0 {
        return nil
    }
    query := `INSERT INTO reservation_targets (reservation_id, target_id, starts_at, ends_at) VALUES `
    args := make([]interface{}, 0, len(r.Targets)*4)
    for i, tg := range r.Targets {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        args = append(args, r.ID, tg, r.Window.Start.UTC(), r.Window.End.UTC())
    }
    _, err := t.tx.ExecContext(ctx, query, args...)
    return err
}

func (t *mysqlTx) Get(ctx context.Context, id string) (*model.Reservation, error) {
    return getReservation(ctx, t.tx, id, true)
}

// Update writes back the mutable columns.  Targets, window and
// confirmation number never change after creation.
func (t *mysqlTx) Update(ctx context.Context, r *model.Reservation) error {
    const q = `UPDATE reservations
               SET state = ?, subtotal_cents = ?, deposit_cents = ?, tax_cents = ?, total_cents = ?,
                   assigned_admin_id = ?, payment_ref = ?, needs_reconciliation = ?, refund_cents = ?, notes = ?
               WHERE id = ?`
    res, err := t.tx.ExecContext(ctx, q,
        string(r.State), r.Price.SubtotalCents, r.Price.DepositCents, r.Price.TaxCents, r.Price.TotalCents,
        nullString(r.AssignedAdminID), nullString(r.PaymentRef), r.NeedsReconciliation, r.RefundCents, nullString(r.Notes),
        r.ID,
    )
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // MySQL reports 0 affected rows when nothing changed, so confirm
        // the row exists before reporting not found.
        var one int
        if err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, r.ID).Scan(&one); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
    }
    return t.tx.QueryRowContext(ctx, `SELECT updated_at FROM reservations WHERE id = ?`, r.ID).Scan(&r.UpdatedAt)
}

// Atomic opens a transaction, locks the catalog rows of every target in
// sorted order and runs fn.  Two callers sharing a target therefore
// serialize on the row lock; callers on disjoint targets proceed in
// parallel.  The transaction commits only when fn returns nil.
func (r *ReservationRepo) Atomic(ctx context.Context, targets []string, fn func(tx ReservationTx) error) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if len(targets) > 0 {
        q, args := lockTargetsQuery(targets)
        rows, err := tx.QueryContext(ctx, q, args...)
        if err != nil {
            return err
        }
        for rows.Next() {
        }
        if err := rows.Err(); err != nil {
            rows.Close()
            return err
        }
        rows.Close()
    }
    if err := fn(&mysqlTx{tx: tx}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

func (r *ReservationRepo) Get(ctx context.Context, id string) (*model.Reservation, error) {
    return getReservation(ctx, r.db, id, false)
}

// GetByConfirmation looks a reservation up by its public confirmation
// number using the unique index on confirmation_number.
func (r *ReservationRepo) GetByConfirmation(ctx context.Context, code string) (*model.Reservation, error) {
    res, err := scanReservation(r.db.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations r WHERE r.confirmation_number = ?`, code))
    if err != nil {
        return nil, err
    }
    if err := loadChildren(ctx, r.db, []*model.Reservation{res}); err != nil {
        return nil, err
    }
    return res, nil
}

// List returns reservations matching f ordered by creation time.
func (r *ReservationRepo) List(ctx context.Context, f Filter) ([]model.Reservation, error) {
    q, args := listQuery(f)
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    var ptrs []*model.Reservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            rows.Close()
            return nil, err
        }
        ptrs = append(ptrs, res)
    }
    if err := rows.Err(); err != nil {
        rows.Close()
        return nil, err
    }
    rows.Close()
    if err := loadChildren(ctx, r.db, ptrs); err != nil {
        return nil, err
    }
    out := make([]model.Reservation, 0, len(ptrs))
    for _, p := range ptrs {
        out = append(out, *p)
    }
    return out, nil
}

// Claim is a conditional update: the assignment is written only when the
// column is still NULL.  When no row changes the current holder is read
// back to tell the caller who owns the reservation.
func (r *ReservationRepo) Claim(ctx context.Context, id, adminID string) (string, error) {
    res, err := r.db.ExecContext(ctx, claimQuery, adminID, id)
    if err != nil {
        return "", err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return "", err
    }
    if n == 1 {
        return adminID, nil
    }
    var holder sql.NullString
    if err := r.db.QueryRowContext(ctx, `SELECT assigned_admin_id FROM reservations WHERE id = ?`, id).Scan(&holder); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return "", ErrNotFound
        }
        return "", err
    }
    if holder.String == adminID {
        return adminID, nil
    }
    return holder.String, ErrAlreadyClaimed
}

// Release clears the assignment only when adminID holds it.
func (r *ReservationRepo) Release(ctx context.Context, id, adminID string) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE reservations SET assigned_admin_id = NULL WHERE id = ? AND assigned_admin_id = ?`, id, adminID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    if err := r.exists(ctx, id); err != nil {
        return err
    }
    return ErrNotOwner
}

func (r *ReservationRepo) ForceRelease(ctx context.Context, id string) error {
    if _, err := r.db.ExecContext(ctx, `UPDATE reservations SET assigned_admin_id = NULL WHERE id = ?`, id); err != nil {
        return err
    }
    return r.exists(ctx, id)
}

// Delete removes a reservation and its child rows in one transaction.
func (r *ReservationRepo) Delete(ctx context.Context, id string) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_services WHERE reservation_id = ?`, id); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_targets WHERE reservation_id = ?`, id); err != nil {
        return err
    }
    res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

func (r *ReservationRepo) exists(ctx context.Context, id string) error {
    var one int
    err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    return err
}

func nullString(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}
