package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/invoice-agent/internal/models"
)

func TestAssemble(t *testing.T) {
	result := &Result{
		Items: []models.InvoiceLineItem{
			{Description: "item a", Amount: decimal.NewFromInt(200), SourceRecordIDs: []int64{1, 2}},
			{Description: "item b", Amount: decimal.NewFromInt(150), SourceRecordIDs: []int64{3}},
		},
		Subtotal:  decimal.NewFromInt(350),
		TaxRate:   decimal.NewFromInt(19),
		TaxAmount: decimal.RequireFromString("66.50"),
		Total:     decimal.RequireFromString("416.50"),
	}

	params := AssembleParams{
		ClientID:      1,
		InvoiceNumber: "INV-2026-0007",
		IssueDate:     models.NewDate(2026, 9, 1),
		DueDate:       models.NewDate(2026, 10, 1),
		Notes:         "Net 30",
	}

	inv := NewAssembler().Assemble(params, result)

	assert.Equal(t, int64(1), inv.ClientID)
	assert.Equal(t, "INV-2026-0007", inv.InvoiceNumber)
	assert.Equal(t, models.StatusDraft, inv.Status, "assembled invoices always start as drafts")
	assert.Equal(t, models.NewDate(2026, 9, 1), inv.IssueDate)
	assert.Equal(t, models.NewDate(2026, 10, 1), inv.DueDate)
	assert.Equal(t, "Net 30", inv.Notes)

	require.Len(t, inv.Items, 2)
	assert.True(t, inv.Subtotal.Equal(result.Subtotal))
	assert.True(t, inv.TaxAmount.Equal(result.TaxAmount))
	assert.True(t, inv.Total.Equal(result.Total))

	// Mutating the invoice's items must not reach back into the result.
	inv.Items[0].Description = "changed"
	assert.Equal(t, "item a", result.Items[0].Description)
}

func TestConsumedRecordIDs(t *testing.T) {
	inv := &models.Invoice{
		Items: []models.InvoiceLineItem{
			{SourceRecordIDs: []int64{1, 2}},
			{SourceRecordIDs: []int64{5}},
			{SourceRecordIDs: []int64{9, 12}},
		},
	}
	assert.Equal(t, []int64{1, 2, 5, 9, 12}, ConsumedRecordIDs(inv))
}
