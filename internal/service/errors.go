package service

import "errors"

// Errors returned by the order and kitchen services.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidOrderType    = errors.New("invalid order_type")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrTableRequired       = errors.New("table_number is required for DINE_IN orders")
	ErrMenuItemNotFound    = errors.New("menu item not found in branch")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotOpen        = errors.New("order is not open")
	ErrKotNotFound         = errors.New("kot not found")
	ErrInvalidKotStatus    = errors.New("invalid kot status")
	ErrInvalidTransition   = errors.New("kot status transition not allowed")
	ErrKotStatusChanged    = errors.New("kot status changed concurrently")
)

// Errors returned by the billing service.
var (
	ErrBillExists         = errors.New("order already has a bill")
	ErrNothingToBill      = errors.New("order has no billable items")
	ErrVoucherNotFound    = errors.New("voucher not found")
	ErrVoucherNotYetValid = errors.New("voucher is not valid yet")
	ErrVoucherExpired     = errors.New("voucher has expired")
	ErrVoucherMinSpend    = errors.New("order subtotal is below the voucher minimum spend")
	ErrVoucherExhausted   = errors.New("voucher has reached its usage limit")
	ErrBillNotFound       = errors.New("bill not found")
	ErrInvalidSplitParts  = errors.New("parts must be between 2 and 20")
	ErrBillNotSplittable  = errors.New("bill cannot be split in its current status")
	ErrSplitTooSmall      = errors.New("bill total is too small to split into that many parts")
	ErrBillNotSplit       = errors.New("bill is not split")
	ErrBillHasPayments    = errors.New("bill already has payments")
	ErrBillBusy           = errors.New("bill is being modified, retry shortly")
	ErrBillNotVoidable    = errors.New("bill cannot be voided in its current status")
)

// Errors returned by the payment service.
var (
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidAmount        = errors.New("amount must be > 0")
	ErrBillAlreadyPaid      = errors.New("bill is already paid")
	ErrBillVoided           = errors.New("bill is void")
	ErrSplitRequired        = errors.New("split_bill_id is required for a split bill")
	ErrSplitNotFound        = errors.New("split bill not found")
	ErrSplitAlreadyPaid     = errors.New("split bill is already paid")
	ErrSplitAmountMismatch  = errors.New("amount must equal the split bill amount")
	ErrOverpayment          = errors.New("amount exceeds the remaining balance")
	ErrInsufficientCash     = errors.New("amount_received must be >= amount")
)

// Errors returned by the inventory service.
var (
	ErrInventoryItemNotFound = errors.New("inventory item not found")
	ErrZeroDelta             = errors.New("delta must not be zero")
	ErrInsufficientStock     = errors.New("adjustment would make stock negative")
)
