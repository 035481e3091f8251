package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/garyjia/invoice-agent/internal/service"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Generate and manage invoices",
}

var (
	genClientID  int64
	genStart     string
	genEnd       string
	genIssueDate string
	genDueDate   string
	genTaxRate   string
	genNotes     string
	genCombine   bool
	genEquity    bool
	genDryRun    bool

	invListClientID int64
	invListStatus   string
)

var invoiceGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an invoice from unbilled work in a date range",
	Args:  cobra.NoArgs,
	RunE:  runInvoiceGenerate,
}

var invoiceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	Args:  cobra.NoArgs,
	RunE:  runInvoiceList,
}

var invoiceShowCmd = &cobra.Command{
	Use:   "show <invoice-id>",
	Short: "Show an invoice",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoiceShow,
}

var invoiceStatusCmd = &cobra.Command{
	Use:   "status <invoice-id> <draft|sent|paid|overdue|canceled>",
	Short: "Set an invoice's status",
	Args:  cobra.ExactArgs(2),
	RunE:  runInvoiceStatus,
}

var invoiceMarkOverdueCmd = &cobra.Command{
	Use:   "mark-overdue",
	Short: "Flip sent invoices past their due date to overdue",
	Args:  cobra.NoArgs,
	RunE:  runInvoiceMarkOverdue,
}

func init() {
	invoiceGenerateCmd.Flags().Int64Var(&genClientID, "client-id", 0, "Client ID (required)")
	invoiceGenerateCmd.Flags().StringVar(&genStart, "start-date", "", "Range start YYYY-MM-DD (required)")
	invoiceGenerateCmd.Flags().StringVar(&genEnd, "end-date", "", "Range end YYYY-MM-DD, inclusive (required)")
	invoiceGenerateCmd.Flags().StringVar(&genIssueDate, "issue-date", "", "Issue date (default today)")
	invoiceGenerateCmd.Flags().StringVar(&genDueDate, "due-date", "", "Due date (default issue date plus configured period)")
	invoiceGenerateCmd.Flags().StringVar(&genTaxRate, "tax-rate", "", "Tax rate in percent, e.g. 19")
	invoiceGenerateCmd.Flags().StringVar(&genNotes, "notes", "", "Notes printed on the invoice")
	invoiceGenerateCmd.Flags().BoolVar(&genCombine, "combine-items", false, "Combine records into one line item per project and category")
	invoiceGenerateCmd.Flags().BoolVar(&genEquity, "include-equity", false, "Annotate line items with accrued equity")
	invoiceGenerateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "Preview the invoice without persisting it")
	invoiceGenerateCmd.MarkFlagRequired("client-id")
	invoiceGenerateCmd.MarkFlagRequired("start-date")
	invoiceGenerateCmd.MarkFlagRequired("end-date")

	invoiceListCmd.Flags().Int64Var(&invListClientID, "client-id", 0, "Filter by client ID")
	invoiceListCmd.Flags().StringVar(&invListStatus, "status", "", "Filter by status")

	invoiceCmd.AddCommand(invoiceGenerateCmd)
	invoiceCmd.AddCommand(invoiceListCmd)
	invoiceCmd.AddCommand(invoiceShowCmd)
	invoiceCmd.AddCommand(invoiceStatusCmd)
	invoiceCmd.AddCommand(invoiceMarkOverdueCmd)
}

func runInvoiceGenerate(cmd *cobra.Command, args []string) error {
	params := service.GenerateParams{
		ClientID:          genClientID,
		Notes:             genNotes,
		CombineByCategory: genCombine,
		IncludeEquity:     genEquity,
		DryRun:            genDryRun,
	}

	var err error
	if params.StartDate, err = models.ParseDate(genStart); err != nil {
		return err
	}
	if params.EndDate, err = models.ParseDate(genEnd); err != nil {
		return err
	}
	if genIssueDate != "" {
		if params.IssueDate, err = models.ParseDate(genIssueDate); err != nil {
			return err
		}
	}
	if genDueDate != "" {
		if params.DueDate, err = models.ParseDate(genDueDate); err != nil {
			return err
		}
	}

	taxRate := decimal.NewFromFloat(app.Config.Invoice.DefaultTaxRate)
	if genTaxRate != "" {
		if taxRate, err = decimal.NewFromString(genTaxRate); err != nil {
			return fmt.Errorf("invalid tax-rate %q: %w", genTaxRate, err)
		}
	}
	if taxRate.IsNegative() {
		return fmt.Errorf("tax-rate must not be negative")
	}
	params.TaxRate = taxRate

	inv, err := app.Invoice.Generate(cmd.Context(), params)
	if err != nil {
		return err
	}

	client, err := app.Clients.GetByID(inv.ClientID)
	if err != nil {
		return err
	}

	if genDryRun {
		fmt.Println("Dry run, nothing was saved.")
		fmt.Println()
	} else {
		fmt.Printf("Created invoice %d (%s)\n\n", inv.ID, inv.InvoiceNumber)
	}
	return app.Renderer.Render(os.Stdout, inv, client, "")
}

func runInvoiceList(cmd *cobra.Command, args []string) error {
	var clientID *int64
	if invListClientID != 0 {
		clientID = &invListClientID
	}
	var status *models.InvoiceStatus
	if invListStatus != "" {
		s, err := models.ParseInvoiceStatus(invListStatus)
		if err != nil {
			return err
		}
		status = &s
	}

	invoices, err := app.Invoice.List(clientID, status)
	if err != nil {
		return err
	}
	if len(invoices) == 0 {
		fmt.Println("No invoices found.")
		return nil
	}

	fmt.Printf("%-5s %-15s %-8s %-12s %-12s %12s\n", "ID", "Number", "Status", "Issued", "Due", "Total")
	for _, inv := range invoices {
		fmt.Printf("%-5d %-15s %-8s %-12s %-12s %12s\n",
			inv.ID, inv.InvoiceNumber, inv.Status, inv.IssueDate, inv.DueDate, inv.Total.StringFixed(2))
	}
	return nil
}

func runInvoiceShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid invoice id %q", args[0])
	}

	inv, err := app.Invoice.Get(id)
	if err != nil {
		return err
	}
	client, err := app.Clients.GetByID(inv.ClientID)
	if err != nil {
		return err
	}
	return app.Renderer.Render(os.Stdout, inv, client, "")
}

func runInvoiceStatus(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid invoice id %q", args[0])
	}
	status, err := models.ParseInvoiceStatus(args[1])
	if err != nil {
		return err
	}

	if err := app.Invoice.UpdateStatus(id, status); err != nil {
		return err
	}
	fmt.Printf("Invoice %d is now %s\n", id, status)
	return nil
}

func runInvoiceMarkOverdue(cmd *cobra.Command, args []string) error {
	n, err := app.Invoice.MarkOverdue(models.Today())
	if err != nil {
		return err
	}
	fmt.Printf("Marked %d invoice(s) overdue\n", n)
	return nil
}
