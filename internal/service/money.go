package service

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// lineTax returns the tax carried by one bill line. Exclusive tax is added on
// top of the line; inclusive tax is the share already inside it.
func lineTax(lineTotal, rate decimal.Decimal, inclusive bool) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	if inclusive {
		return round2(lineTotal.Mul(rate).Div(hundred.Add(rate)))
	}
	return round2(lineTotal.Mul(rate).Div(hundred))
}

// billLine is one priced and taxed line of a bill before insertion.
type billLine struct {
	item      database.ListBillableItemsByOrderRow
	lineTotal decimal.Decimal
	taxAmount decimal.Decimal
}

// billTotals holds the figures stored on the bill header.
type billTotals struct {
	lines        []billLine
	subtotal     decimal.Decimal
	exclusiveTax decimal.Decimal
	taxAmount    decimal.Decimal
}

func priceLines(items []database.ListBillableItemsByOrderRow) billTotals {
	t := billTotals{
		lines:        make([]billLine, 0, len(items)),
		subtotal:     decimal.Zero,
		exclusiveTax: decimal.Zero,
		taxAmount:    decimal.Zero,
	}
	for _, it := range items {
		lineTotal := round2(it.UnitPrice.Mul(decimal.NewFromInt32(it.Quantity)))
		tax := lineTax(lineTotal, it.TaxRate, it.TaxInclusive)
		t.lines = append(t.lines, billLine{item: it, lineTotal: lineTotal, taxAmount: tax})
		t.subtotal = t.subtotal.Add(lineTotal)
		t.taxAmount = t.taxAmount.Add(tax)
		if !it.TaxInclusive {
			t.exclusiveTax = t.exclusiveTax.Add(tax)
		}
	}
	return t
}

// checkVoucher validates that v can be redeemed against subtotal at now.
func checkVoucher(v database.Voucher, subtotal decimal.Decimal, now time.Time) error {
	if !v.IsActive {
		return ErrVoucherNotFound
	}
	if v.ValidFrom.Valid && now.Before(v.ValidFrom.Time) {
		return ErrVoucherNotYetValid
	}
	if v.ValidUntil.Valid && now.After(v.ValidUntil.Time) {
		return ErrVoucherExpired
	}
	if subtotal.LessThan(v.MinSpend) {
		return ErrVoucherMinSpend
	}
	if v.MaxUses.Valid && v.UsedCount >= v.MaxUses.Int32 {
		return ErrVoucherExhausted
	}
	return nil
}

// voucherDiscount never exceeds subtotal. Percentage discounts are capped by
// max_discount when one is set.
func voucherDiscount(v database.Voucher, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch v.DiscountType {
	case enum.DiscountTypePercentage:
		d = round2(subtotal.Mul(v.DiscountValue).Div(hundred))
		if v.MaxDiscount.Valid && d.GreaterThan(v.MaxDiscount.Decimal) {
			d = v.MaxDiscount.Decimal
		}
	default:
		d = v.DiscountValue
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return round2(d)
}

// splitEqual divides total into parts shares truncated to cents. The cents
// lost to truncation are added to the first share so the shares always sum
// to total.
func splitEqual(total decimal.Decimal, parts int) []decimal.Decimal {
	n := decimal.NewFromInt(int64(parts))
	share := total.Div(n).Truncate(2)
	remainder := total.Sub(share.Mul(n))

	out := make([]decimal.Decimal, parts)
	for i := range out {
		out[i] = share
	}
	out[0] = out[0].Add(remainder)
	return out
}
