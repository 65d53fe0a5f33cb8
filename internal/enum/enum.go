package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	DiningOrderStatusOpen      = "OPEN"
	DiningOrderStatusBilled    = "BILLED"
	DiningOrderStatusClosed    = "CLOSED"
	DiningOrderStatusCancelled = "CANCELLED"
)

const (
	KotStatusPending   = "PENDING"
	KotStatusPreparing = "PREPARING"
	KotStatusReady     = "READY"
	KotStatusServed    = "SERVED"
	KotStatusCancelled = "CANCELLED"
)

const (
	BillStatusOpen  = "OPEN"
	BillStatusSplit = "SPLIT"
	BillStatusPaid  = "PAID"
	BillStatusVoid  = "VOID"
)

const (
	SplitBillStatusUnpaid = "UNPAID"
	SplitBillStatusPaid   = "PAID"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
	OrderTypeDelivery = "DELIVERY"
)

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodQRIS     = "QRIS"
	PaymentMethodTransfer = "TRANSFER"
)

const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED_AMOUNT"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	StationGrill    = "GRILL"
	StationBeverage = "BEVERAGE"
	StationFry      = "FRY"
	StationCold     = "COLD"
	StationDessert  = "DESSERT"
	StationGeneral  = "GENERAL"
)

// kotTransitions lists the statuses each KOT status may move to.
var kotTransitions = map[string][]string{
	KotStatusPending:   {KotStatusPreparing, KotStatusCancelled},
	KotStatusPreparing: {KotStatusReady, KotStatusCancelled},
	KotStatusReady:     {KotStatusServed},
}

// CanTransitionKot reports whether a ticket may move from one status to the other.
func CanTransitionKot(from, to string) bool {
	for _, next := range kotTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
