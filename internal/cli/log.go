package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/garyjia/invoice-agent/internal/extraction"
	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/garyjia/invoice-agent/internal/repository"
	"github.com/garyjia/invoice-agent/internal/service"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Manage work log entries",
}

var (
	logProjectID   int64
	logDate        string
	logHours       string
	logDescription string
	logCategory    string
	logNonBillable bool
	logTags        []string
	logAllowFuture bool
	logHintClient  string
	logHintProject string

	logListProjectID int64
	logListStart     string
	logListEnd       string
	logListUnbilled  bool
)

var logAddCmd = &cobra.Command{
	Use:   "add [free-form text]",
	Short: "Add a work log entry",
	Long: `Add a work log entry. With free-form text the local model extracts the
structured record; fields it had to estimate are reported for review.
Without text, --project-id, --hours and --description are required.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogAdd,
}

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "List work log entries",
	Args:  cobra.NoArgs,
	RunE:  runLogList,
}

func init() {
	logAddCmd.Flags().Int64Var(&logProjectID, "project-id", 0, "Project ID (manual entry)")
	logAddCmd.Flags().StringVar(&logDate, "date", "", "Work date YYYY-MM-DD (default today)")
	logAddCmd.Flags().StringVar(&logHours, "hours", "", "Hours worked, e.g. 2.5 (manual entry)")
	logAddCmd.Flags().StringVar(&logDescription, "description", "", "Work description (manual entry)")
	logAddCmd.Flags().StringVar(&logCategory, "category", "", "Work category")
	logAddCmd.Flags().BoolVar(&logNonBillable, "non-billable", false, "Mark the entry as not billable")
	logAddCmd.Flags().StringSliceVar(&logTags, "tags", nil, "Comma-separated tags")
	logAddCmd.Flags().BoolVar(&logAllowFuture, "allow-future", false, "Allow a work date in the future")
	logAddCmd.Flags().StringVar(&logHintClient, "client", "", "Client name hint for free-form extraction")
	logAddCmd.Flags().StringVar(&logHintProject, "project", "", "Project name hint for free-form extraction")

	logListCmd.Flags().Int64Var(&logListProjectID, "project-id", 0, "Filter by project ID")
	logListCmd.Flags().StringVar(&logListStart, "start-date", "", "Earliest work date YYYY-MM-DD")
	logListCmd.Flags().StringVar(&logListEnd, "end-date", "", "Latest work date YYYY-MM-DD")
	logListCmd.Flags().BoolVar(&logListUnbilled, "unbilled", false, "Only entries not yet on an invoice")

	logCmd.AddCommand(logAddCmd)
	logCmd.AddCommand(logListCmd)
}

func runLogAdd(cmd *cobra.Command, args []string) error {
	entry, err := buildEntry(args)
	if err != nil {
		return err
	}

	record, draft, err := app.WorkLog.Add(cmd.Context(), entry)
	if err != nil {
		return err
	}

	fmt.Printf("Logged %s hours on %s (record %d)\n", record.Hours.String(), record.WorkDate, record.ID)
	if draft != nil {
		if fields := draft.LowConfidenceFields(); len(fields) > 0 {
			fmt.Printf("Review suggested, estimated fields: %s\n", strings.Join(fields, ", "))
		}
		for _, v := range draft.Violations {
			fmt.Printf("Rejected %s (%s), a default was used instead\n", v.Field, v.Reason)
		}
	}
	return nil
}

func buildEntry(args []string) (service.Entry, error) {
	if len(args) == 1 {
		text := strings.TrimSpace(args[0])
		if text == "" {
			return nil, fmt.Errorf("free-form text must not be empty")
		}
		entry := service.FreeFormEntry{Text: text, AllowFuture: logAllowFuture}
		if logHintClient != "" || logHintProject != "" {
			entry.Hint = &extraction.ProjectHint{
				Client:  logHintClient,
				Project: logHintProject,
			}
		}
		return entry, nil
	}

	if logProjectID == 0 || logHours == "" || logDescription == "" {
		return nil, fmt.Errorf("manual entry requires --project-id, --hours and --description")
	}

	hours, err := decimal.NewFromString(logHours)
	if err != nil {
		return nil, fmt.Errorf("invalid hours %q: %w", logHours, err)
	}

	workDate := models.Today()
	if logDate != "" {
		workDate, err = models.ParseDate(logDate)
		if err != nil {
			return nil, err
		}
	}

	entry := service.ManualEntry{
		ProjectID:   logProjectID,
		WorkDate:    workDate,
		Hours:       hours,
		Description: logDescription,
		Billable:    !logNonBillable,
		Tags:        logTags,
		AllowFuture: logAllowFuture,
	}
	if logCategory != "" {
		entry.Category = &logCategory
	}
	return entry, nil
}

func runLogList(cmd *cobra.Command, args []string) error {
	filter := repository.ListFilter{UnbilledOnly: logListUnbilled}
	if logListProjectID != 0 {
		filter.ProjectID = &logListProjectID
	}
	if logListStart != "" {
		start, err := models.ParseDate(logListStart)
		if err != nil {
			return err
		}
		filter.Start = &start
	}
	if logListEnd != "" {
		end, err := models.ParseDate(logListEnd)
		if err != nil {
			return err
		}
		filter.End = &end
	}

	records, err := app.WorkLog.List(filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No work log entries found.")
		return nil
	}

	fmt.Printf("%-5s %-12s %7s %-9s %-8s %s\n", "ID", "Date", "Hours", "Billable", "Invoice", "Description")
	for _, r := range records {
		billable := "yes"
		if !r.Billable {
			billable = "no"
		}
		invoiceRef := "-"
		if r.InvoiceID != nil {
			invoiceRef = fmt.Sprintf("%d", *r.InvoiceID)
		}
		fmt.Printf("%-5d %-12s %7s %-9s %-8s %s\n", r.ID, r.WorkDate, r.Hours.String(), billable, invoiceRef, r.Description)
	}
	return nil
}
