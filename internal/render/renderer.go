package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/garyjia/invoice-agent/internal/models"
)

// Renderer turns an assembled invoice into a document using a named
// template. PDF and HTML renderers are external collaborators behind this
// interface; the core stays agnostic to the output format.
type Renderer interface {
	Render(w io.Writer, inv *models.Invoice, client *models.Client, template string) error
}

// TextRenderer writes a plain-text invoice preview, used by dry runs.
type TextRenderer struct{}

// NewTextRenderer creates a text renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render writes the invoice as aligned plain text. The template argument
// is accepted for interface parity and ignored.
func (r *TextRenderer) Render(w io.Writer, inv *models.Invoice, client *models.Client, _ string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Invoice %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&b, "Client:   %s\n", client.Name)
	fmt.Fprintf(&b, "Issued:   %s\n", inv.IssueDate)
	fmt.Fprintf(&b, "Due:      %s\n", inv.DueDate)
	fmt.Fprintf(&b, "Status:   %s\n\n", inv.Status)

	fmt.Fprintf(&b, "%-50s %10s %6s %10s %12s\n", "Description", "Qty", "Unit", "Rate", "Amount")
	fmt.Fprintln(&b, strings.Repeat("-", 92))
	for _, item := range inv.Items {
		fmt.Fprintf(&b, "%-50s %10s %6s %10s %12s\n",
			clip(item.Description, 50),
			item.Quantity.String(),
			item.Unit,
			item.Rate.StringFixed(2),
			item.Amount.StringFixed(2),
		)
		if item.HasEquityComponent() {
			fmt.Fprintf(&b, "    equity: %s %s\n", item.EquityQuantity.String(), *item.EquityType)
		}
	}
	fmt.Fprintln(&b, strings.Repeat("-", 92))

	fmt.Fprintf(&b, "%78s %12s\n", "Subtotal:", inv.Subtotal.StringFixed(2))
	if inv.TaxRate.IsPositive() {
		fmt.Fprintf(&b, "%77s%% %12s\n", "Tax "+inv.TaxRate.String(), inv.TaxAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "%78s %12s\n", "Total:", inv.Total.StringFixed(2))

	if inv.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", inv.Notes)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
