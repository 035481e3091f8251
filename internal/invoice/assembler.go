package invoice

import (
	"github.com/garyjia/invoice-agent/internal/models"
)

// Assembler binds aggregation output to an invoice identity. The returned
// invoice is always in draft status; persisting it and marking the consumed
// work records is the caller's transaction (see service.InvoiceService),
// which is the only point where work records become immutable.
type Assembler struct{}

// NewAssembler creates an invoice assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// AssembleParams carries the invoice identity for one assembly.
type AssembleParams struct {
	ClientID      int64
	InvoiceNumber string
	IssueDate     models.Date
	DueDate       models.Date
	Notes         string
}

// Assemble produces a draft invoice from an aggregation result. The result
// is not mutated; line items are copied onto the invoice.
func (a *Assembler) Assemble(params AssembleParams, result *Result) *models.Invoice {
	items := make([]models.InvoiceLineItem, len(result.Items))
	copy(items, result.Items)

	return &models.Invoice{
		ClientID:      params.ClientID,
		InvoiceNumber: params.InvoiceNumber,
		IssueDate:     params.IssueDate,
		DueDate:       params.DueDate,
		Status:        models.StatusDraft,
		Notes:         params.Notes,
		Items:         items,
		Subtotal:      result.Subtotal,
		TaxRate:       result.TaxRate,
		TaxAmount:     result.TaxAmount,
		Total:         result.Total,
	}
}

// ConsumedRecordIDs returns the union of source record IDs across the
// invoice's line items, the set Assemble consumed.
func ConsumedRecordIDs(inv *models.Invoice) []int64 {
	var ids []int64
	for _, item := range inv.Items {
		ids = append(ids, item.SourceRecordIDs...)
	}
	return ids
}
