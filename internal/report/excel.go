// Package report renders reservation lists as spreadsheets for the admin
// surface.
package report

import (
    "bytes"
    "fmt"
    "strings"
    "time"

    "github.com/xuri/excelize/v2"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// SheetName is the name of the single worksheet in an export.
const SheetName = "Reservations"

var headers = []string{
    "#", "Confirmation", "Kind", "Targets", "Start", "End", "Guest", "Email", "Phone",
    "Guests", "State", "Assigned to", "Subtotal", "Tax", "Total", "Deposit", "Refund",
    "Needs reconciliation", "Created",
}

// WriteReservations renders rows into an xlsx workbook and returns its
// bytes.  Times are shown in loc (UTC when nil) and amounts in currency
// units.  A totals row sums the amounts of active reservations.
func WriteReservations(rows []model.Reservation, generatedAt time.Time, loc *time.Location) ([]byte, error) {
    if loc == nil {
        loc = time.UTC
    }
    f := excelize.NewFile()
    defer f.Close()

    if err := f.SetSheetName("Sheet1", SheetName); err != nil {
        return nil, err
    }
    header := make([]interface{}, len(headers))
    for i, h := range headers {
        header[i] = h
    }
    if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
        return nil, err
    }
    bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
    if err != nil {
        return nil, err
    }
    last, _ := excelize.CoordinatesToCellName(len(headers), 1)
    if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
        return nil, err
    }

    var activeTotal, activeDeposit int64
    for i, r := range rows {
        row := i + 2
        cell, _ := excelize.CoordinatesToCellName(1, row)
        assigned := r.AssignedAdminID
        if assigned == "" {
            assigned = "-"
        }
        values := []interface{}{
            i + 1,
            r.ConfirmationNumber,
            string(r.Kind),
            strings.Join(r.Targets, ", "),
            r.Window.Start.In(loc).Format("2006-01-02 15:04"),
            r.Window.End.In(loc).Format("2006-01-02 15:04"),
            strings.TrimSpace(r.Contact.Name + " " + r.Contact.Surname),
            r.Contact.Email,
            r.Contact.Phone,
            r.GuestCount,
            string(r.State),
            assigned,
            money(r.Price.SubtotalCents),
            money(r.Price.TaxCents),
            money(r.Price.TotalCents),
            money(r.Price.DepositCents),
            money(r.RefundCents),
            yesNo(r.NeedsReconciliation),
            r.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
        }
        if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
            return nil, err
        }
        if r.State.Active() {
            activeTotal += r.Price.TotalCents
            activeDeposit += r.Price.DepositCents
        }
    }

    summary := len(rows) + 3
    _ = f.SetCellValue(SheetName, fmt.Sprintf("A%d", summary), "Active total")
    _ = f.SetCellValue(SheetName, fmt.Sprintf("O%d", summary), money(activeTotal))
    _ = f.SetCellValue(SheetName, fmt.Sprintf("P%d", summary), money(activeDeposit))
    _ = f.SetCellValue(SheetName, fmt.Sprintf("A%d", summary+1), "Generated")
    _ = f.SetCellValue(SheetName, fmt.Sprintf("B%d", summary+1), generatedAt.In(loc).Format(time.RFC3339))

    _ = f.SetColWidth(SheetName, "A", "A", 6)
    _ = f.SetColWidth(SheetName, "B", "B", 16)
    _ = f.SetColWidth(SheetName, "D", "D", 18)
    _ = f.SetColWidth(SheetName, "E", "F", 18)
    _ = f.SetColWidth(SheetName, "G", "H", 24)
    _ = f.SetColWidth(SheetName, "M", "Q", 12)
    _ = f.SetColWidth(SheetName, "S", "S", 20)

    buf, err := f.WriteToBuffer()
    if err != nil {
        return nil, err
    }
    return bytes.Clone(buf.Bytes()), nil
}

// Filename returns the download name for an export generated at t.
func Filename(t time.Time) string {
    return fmt.Sprintf("reservations_%s.xlsx", t.UTC().Format("20060102_150405"))
}

func money(cents int64) float64 { return float64(cents) / 100 }

func yesNo(b bool) string {
    if b {
        return "yes"
    }
    return "no"
}
