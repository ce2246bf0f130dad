package models

// Order lifecycle. Cancelled is reachable from every pre-paid state.
const (
	OrderStatusDraft      = "draft"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusPostedToQB = "posted_to_qb"
	OrderStatusPaid       = "paid"
	OrderStatusCancelled  = "cancelled"
)

// QuickBooks document types an order can be posted as.
const (
	QboDocTypeInvoice  = "invoice"
	QboDocTypeEstimate = "estimate"
)

// Payment status derived from a QBO invoice balance.
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusUnpaid  = "unpaid"
)

// Sync map entity types (local side).
const (
	SyncEntityAccount = "account"
	SyncEntityProduct = "product"
	SyncEntityOrder   = "order"
)

// Sync map entity types (QuickBooks side).
const (
	QboTypeCustomer = "customer"
	QboTypeItem     = "item"
	QboTypeInvoice  = "invoice"
	QboTypeEstimate = "estimate"
)

// Order activity type tags.
const (
	ActivityInvoiceCreated  = "invoice_created"
	ActivityInvoiceUpdated  = "invoice_updated"
	ActivityInvoiceVoided   = "invoice_voided"
	ActivityPaymentReceived = "payment_received"
	ActivitySyncedFromQB    = "synced_from_qb"
	ActivityOrderCreated    = "order_created"
	ActivityOrderConfirmed  = "order_confirmed"
	ActivityOrderCancelled  = "order_cancelled"
)

// Actor recorded on activities written by the webhook path.
const WebhookActor = "QuickBooks Webhook"

const (
	UserRoleAdmin = "admin"
	UserRoleStaff = "staff"
)

// Address types.
const (
	AddressTypeBilling   = "billing"
	AddressTypeShipping  = "shipping"
	AddressTypeWarehouse = "warehouse"
	AddressTypePickup    = "pickup"
)

func IsValidDocType(docType string) bool {
	return docType == QboDocTypeInvoice || docType == QboDocTypeEstimate
}

// CanCancel reports whether an order in the given status may move to cancelled.
func CanCancel(status string) bool {
	switch status {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusPostedToQB:
		return true
	default:
		return false
	}
}
