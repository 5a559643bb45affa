package audit

// EventCode identifies an activity message template.
type EventCode string

// Activity event codes.
const (
	EventInventoryMovement EventCode = "inventory.movement"

	EventLocationCreated     EventCode = "location.created"
	EventLocationUpdated     EventCode = "location.updated"
	EventLocationDeactivated EventCode = "location.deactivated"

	EventTransferCreated   EventCode = "transfer.created"
	EventTransferCompleted EventCode = "transfer.completed"
	EventTransferCancelled EventCode = "transfer.cancelled"

	EventGRNCreated   EventCode = "grn.created"
	EventGRNUpdated   EventCode = "grn.updated"
	EventGRNVerified  EventCode = "grn.verified"
	EventGRNCancelled EventCode = "grn.cancelled"

	EventQuotationCreated   EventCode = "quotation.created"
	EventQuotationUpdated   EventCode = "quotation.updated"
	EventQuotationApproved  EventCode = "quotation.approved"
	EventQuotationCancelled EventCode = "quotation.cancelled"
	EventQuotationDeleted   EventCode = "quotation.deleted"
	EventQuotationExpired   EventCode = "quotation.expired"

	EventInvoiceCreated            EventCode = "invoice.created"
	EventInvoiceConverted          EventCode = "invoice.converted"
	EventInvoiceUpdated            EventCode = "invoice.updated"
	EventInvoiceVerified           EventCode = "invoice.verified"
	EventInvoiceDiscountApplied    EventCode = "invoice.discount_applied"
	EventInvoiceDiscountOverridden EventCode = "invoice.discount_overridden"
	EventInvoicePaymentAdded       EventCode = "invoice.payment_added"
	EventInvoiceFulfilled          EventCode = "invoice.fulfilled"
	EventInvoiceCancelled          EventCode = "invoice.cancelled"

	EventDiscountCreated     EventCode = "discount.created"
	EventDiscountUpdated     EventCode = "discount.updated"
	EventDiscountDeleted     EventCode = "discount.deleted"
	EventDiscountActivated   EventCode = "discount.activated"
	EventDiscountDeactivated EventCode = "discount.deactivated"
	EventDiscountExpired     EventCode = "discount.expired"
	EventDiscountAutoStarted EventCode = "discount.auto_activated"

	EventProductCreated     EventCode = "product.created"
	EventProductUpdated     EventCode = "product.updated"
	EventProductDeactivated EventCode = "product.deactivated"

	EventSupplierCreated EventCode = "supplier.created"
	EventSupplierUpdated EventCode = "supplier.updated"
	EventSupplierDeleted EventCode = "supplier.deleted"

	EventCustomerCreated EventCode = "customer.created"
	EventCustomerUpdated EventCode = "customer.updated"
	EventCustomerDeleted EventCode = "customer.deleted"

	EventUserCreated EventCode = "user.created"
	EventUserLogin   EventCode = "user.login"
)

// templates render with {key} placeholders; {actor} is always supplied.
var templates = map[EventCode]string{
	EventInventoryMovement: "{actor} recorded {movement_type} of {quantity} for product #{product_id} at location #{location_id} ({reference_type} #{reference_id})",

	EventLocationCreated:     "{actor} created location {code}",
	EventLocationUpdated:     "{actor} updated location {code}",
	EventLocationDeactivated: "{actor} deactivated location {code}",

	EventTransferCreated:   "{actor} requested transfer #{transfer_id} of {quantity} units of product #{product_id} from {from} to {to}",
	EventTransferCompleted: "{actor} completed transfer #{transfer_id}",
	EventTransferCancelled: "{actor} cancelled transfer #{transfer_id}",

	EventGRNCreated:   "{actor} created GRN {grn_number}",
	EventGRNUpdated:   "{actor} updated GRN {grn_number}",
	EventGRNVerified:  "{actor} verified GRN {grn_number} ({lines} lines received)",
	EventGRNCancelled: "{actor} cancelled GRN {grn_number}",

	EventQuotationCreated:   "{actor} created quotation {quotation_number} for {total}",
	EventQuotationUpdated:   "{actor} updated quotation {quotation_number}",
	EventQuotationApproved:  "{actor} approved quotation {quotation_number}",
	EventQuotationCancelled: "{actor} cancelled quotation {quotation_number}",
	EventQuotationDeleted:   "{actor} deleted quotation {quotation_number}",
	EventQuotationExpired:   "Quotation {quotation_number} expired (valid until {valid_until})",

	EventInvoiceCreated:            "{actor} created invoice {invoice_number} for {net}",
	EventInvoiceConverted:          "{actor} created invoice {invoice_number} from quotation {quotation_number}",
	EventInvoiceUpdated:            "{actor} updated invoice {invoice_number}",
	EventInvoiceVerified:           "{actor} verified invoice {invoice_number}",
	EventInvoiceDiscountApplied:    "{actor} applied discount {code} to invoice {invoice_number} ({discount})",
	EventInvoiceDiscountOverridden: "{actor} overrode discount on invoice {invoice_number} to {discount}",
	EventInvoicePaymentAdded:       "{actor} recorded {method} payment of {amount} on invoice {invoice_number}",
	EventInvoiceFulfilled:          "{actor} fulfilled invoice {invoice_number}",
	EventInvoiceCancelled:          "{actor} cancelled invoice {invoice_number}",

	EventDiscountCreated:     "{actor} created discount {code}",
	EventDiscountUpdated:     "{actor} updated discount {code}",
	EventDiscountDeleted:     "{actor} deleted discount {code}",
	EventDiscountActivated:   "{actor} activated discount {code}",
	EventDiscountDeactivated: "{actor} deactivated discount {code}",
	EventDiscountExpired:     "Discount {code} expired on {end_date}",
	EventDiscountAutoStarted: "Discount {code} became active on {start_date}",

	EventProductCreated:     "{actor} created product {sku}",
	EventProductUpdated:     "{actor} updated product {sku}",
	EventProductDeactivated: "{actor} deactivated product {sku}",

	EventSupplierCreated: "{actor} created supplier {name}",
	EventSupplierUpdated: "{actor} updated supplier {name}",
	EventSupplierDeleted: "{actor} deleted supplier {name}",

	EventCustomerCreated: "{actor} created customer {name}",
	EventCustomerUpdated: "{actor} updated customer {name}",
	EventCustomerDeleted: "{actor} deleted customer {name}",

	EventUserCreated: "{actor} created user {username} with role {role}",
	EventUserLogin:   "{actor} signed in",
}
