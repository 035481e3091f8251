package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkRecord is one unit of billable or non-billable effort logged
// against a project. A record with a non-nil InvoiceID has been consumed
// by an invoice and is immutable from that point on.
type WorkRecord struct {
	ID          int64           `json:"id"`
	ProjectID   int64           `json:"project_id"`
	InvoiceID   *int64          `json:"invoice_id,omitempty"`
	WorkDate    Date            `json:"work_date"`
	Hours       decimal.Decimal `json:"hours"`
	Description string          `json:"description"`
	Category    *string         `json:"category,omitempty"`
	Billable    bool            `json:"billable"`
	Tags        []string        `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Invoiced reports whether the record has been bound to an invoice.
func (w *WorkRecord) Invoiced() bool {
	return w.InvoiceID != nil
}
