// Package report renders sales reports as Excel workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/xuri/excelize/v2"
)

const (
	BillsSheet = "Bills"
	DailySheet = "Daily"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// excelize built-in number format "#,##0.00"
	moneyFormat = 4
)

var (
	billHeaders  = []interface{}{"Bill", "Order", "Type", "Subtotal", "Discount", "Tax", "Total", "Paid At"}
	dailyHeaders = []interface{}{"Day", "Bills", "Gross", "Discount", "Tax", "Net"}
)

// WriteSalesWorkbook writes one row per paid bill and one row per day, each
// sheet closed by a totals row.
func WriteSalesWorkbook(w io.Writer, bills []database.ListPaidBillsRow, daily []database.GetDailySalesRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", BillsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DailySheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyFormat})
	if err != nil {
		return fmt.Errorf("new style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("new style: %w", err)
	}

	if err := writeBills(f, bills); err != nil {
		return err
	}
	if err := writeDaily(f, daily); err != nil {
		return err
	}

	for _, s := range []struct {
		sheet, headerEnd, money string
	}{
		{BillsSheet, "H1", "D:G"},
		{DailySheet, "F1", "C:F"},
	} {
		if err := f.SetColStyle(s.sheet, s.money, money); err != nil {
			return fmt.Errorf("set column style: %w", err)
		}
		if err := f.SetCellStyle(s.sheet, "A1", s.headerEnd, bold); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
	}

	return f.Write(w)
}

func writeBills(f *excelize.File, bills []database.ListPaidBillsRow) error {
	if err := f.SetSheetRow(BillsSheet, "A1", &billHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var subtotal, discount, tax, total decimal.Decimal
	for i, b := range bills {
		row := []interface{}{
			b.BillNumber,
			b.OrderNumber,
			b.OrderType,
			b.Subtotal.InexactFloat64(),
			b.DiscountAmount.InexactFloat64(),
			b.TaxAmount.InexactFloat64(),
			b.TotalAmount.InexactFloat64(),
			b.PaidAt.Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(BillsSheet, cell(1, i+2), &row); err != nil {
			return fmt.Errorf("write bill row: %w", err)
		}
		subtotal = subtotal.Add(b.Subtotal)
		discount = discount.Add(b.DiscountAmount)
		tax = tax.Add(b.TaxAmount)
		total = total.Add(b.TotalAmount)
	}

	totals := []interface{}{
		"TOTAL", nil, nil,
		subtotal.InexactFloat64(),
		discount.InexactFloat64(),
		tax.InexactFloat64(),
		total.InexactFloat64(),
	}
	if err := f.SetSheetRow(BillsSheet, cell(1, len(bills)+2), &totals); err != nil {
		return fmt.Errorf("write bill totals: %w", err)
	}
	return nil
}

func writeDaily(f *excelize.File, daily []database.GetDailySalesRow) error {
	if err := f.SetSheetRow(DailySheet, "A1", &dailyHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var count int64
	var gross, discount, tax, net decimal.Decimal
	for i, d := range daily {
		row := []interface{}{
			d.Day.Time.Format("2006-01-02"),
			d.BillCount,
			d.GrossSales.InexactFloat64(),
			d.DiscountTotal.InexactFloat64(),
			d.TaxTotal.InexactFloat64(),
			d.NetSales.InexactFloat64(),
		}
		if err := f.SetSheetRow(DailySheet, cell(1, i+2), &row); err != nil {
			return fmt.Errorf("write daily row: %w", err)
		}
		count += d.BillCount
		gross = gross.Add(d.GrossSales)
		discount = discount.Add(d.DiscountTotal)
		tax = tax.Add(d.TaxTotal)
		net = net.Add(d.NetSales)
	}

	totals := []interface{}{
		"TOTAL", count,
		gross.InexactFloat64(),
		discount.InexactFloat64(),
		tax.InexactFloat64(),
		net.InexactFloat64(),
	}
	if err := f.SetSheetRow(DailySheet, cell(1, len(daily)+2), &totals); err != nil {
		return fmt.Errorf("write daily totals: %w", err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
