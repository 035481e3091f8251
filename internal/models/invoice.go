package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

// Invoice statuses.
const (
	StatusDraft    InvoiceStatus = "draft"
	StatusSent     InvoiceStatus = "sent"
	StatusPaid     InvoiceStatus = "paid"
	StatusOverdue  InvoiceStatus = "overdue"
	StatusCanceled InvoiceStatus = "canceled"
)

// ParseInvoiceStatus validates a status string.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch InvoiceStatus(s) {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCanceled:
		return InvoiceStatus(s), nil
	default:
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
}

// InvoiceLineItem is one billable row on an invoice, possibly aggregated
// from several work records. Equity fields are informational only and
// never contribute to cash amounts.
type InvoiceLineItem struct {
	ID                int64            `json:"id"`
	InvoiceID         int64            `json:"invoice_id"`
	Description       string           `json:"description"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Unit              string           `json:"unit"`
	Rate              decimal.Decimal  `json:"rate"`
	Amount            decimal.Decimal  `json:"amount"`
	Category          *string          `json:"category,omitempty"`
	SourceRecordIDs   []int64          `json:"source_record_ids"`
	EquityType        *string          `json:"equity_type,omitempty"`
	EquityQuantity    *decimal.Decimal `json:"equity_quantity,omitempty"`
	EquityDescription *string          `json:"equity_description,omitempty"`
}

// HasEquityComponent reports whether the line item carries an equity sub-field.
func (li *InvoiceLineItem) HasEquityComponent() bool {
	return li.EquityType != nil && li.EquityQuantity != nil
}

// Invoice is a billing document for a single client.
//
// Invariants: Subtotal equals the sum of line-item amounts, TaxAmount
// equals round(Subtotal * TaxRate / 100, 2), Total = Subtotal + TaxAmount.
type Invoice struct {
	ID            int64             `json:"id"`
	ClientID      int64             `json:"client_id"`
	InvoiceNumber string            `json:"invoice_number"`
	IssueDate     Date              `json:"issue_date"`
	DueDate       Date              `json:"due_date"`
	Status        InvoiceStatus     `json:"status"`
	Notes         string            `json:"notes,omitempty"`
	Items         []InvoiceLineItem `json:"items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	TaxRate       decimal.Decimal   `json:"tax_rate"`
	TaxAmount     decimal.Decimal   `json:"tax_amount"`
	Total         decimal.Decimal   `json:"total"`
}
