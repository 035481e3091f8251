package invoice

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// currencyPlaces is the configured currency precision.
const currencyPlaces = 2

// Summarizer produces a natural-language description for a combined line
// item. Implementations may call the AI collaborator; the engine keeps a
// deterministic fallback and never blocks past summarizerTimeout.
type Summarizer interface {
	SummarizeCategory(ctx context.Context, project string, category string, descriptions []string) (string, error)
}

const summarizerTimeout = 10 * time.Second

// Options controls how work records collapse into line items.
type Options struct {
	CombineByCategory bool
	IncludeEquity     bool
	// TaxRate is a percentage, e.g. 8.25 for 8.25%.
	TaxRate decimal.Decimal
}

// Result is the deterministic output of one aggregation run. Line items
// carry the exact union of the input record IDs with no omissions or
// duplicates, and totals are reproducible from the items alone.
type Result struct {
	Items     []models.InvoiceLineItem
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Engine collapses billable work records into invoice line items with
// exact decimal totals.
//
// Rounding mode: half-up (round half away from zero), applied once per
// line-item amount and once to the tax amount, so totals can be reproduced
// independently from the line items.
type Engine struct {
	summarizer Summarizer
	logger     *zap.Logger
}

// NewEngine creates an aggregation engine. summarizer may be nil, in which
// case combined line items always use the deterministic description.
func NewEngine(summarizer Summarizer, logger *zap.Logger) *Engine {
	return &Engine{summarizer: summarizer, logger: logger}
}

// Aggregate groups the given work records into line items for the client
// and computes subtotal, tax and total. Non-billable records are excluded
// silently; an already-invoiced or cross-client record is a precondition
// violation. Records are processed in (work date, id) order so identical
// inputs always produce identical output.
func (e *Engine) Aggregate(ctx context.Context, client *models.Client, projects map[int64]*models.Project, records []models.WorkRecord, opts Options) (*Result, error) {
	billable := make([]models.WorkRecord, 0, len(records))
	for _, rec := range records {
		if !rec.Billable {
			continue
		}
		project, ok := projects[rec.ProjectID]
		if !ok {
			return nil, &AggregationError{
				Reason: ReasonCrossClientRecord,
				Detail: fmt.Sprintf("work record %d references unknown project %d", rec.ID, rec.ProjectID),
			}
		}
		if project.ClientID != client.ID {
			return nil, &AggregationError{
				Reason: ReasonCrossClientRecord,
				Detail: fmt.Sprintf("work record %d belongs to project %q of another client", rec.ID, project.Name),
			}
		}
		if rec.Invoiced() {
			return nil, &AggregationError{
				Reason: ReasonAlreadyInvoiced,
				Detail: fmt.Sprintf("work record %d is already on invoice %d", rec.ID, *rec.InvoiceID),
			}
		}
		billable = append(billable, rec)
	}

	if len(billable) == 0 {
		return nil, &AggregationError{Reason: ReasonEmptyWorkSet}
	}

	sort.SliceStable(billable, func(i, j int) bool {
		if billable[i].WorkDate != billable[j].WorkDate {
			return billable[i].WorkDate.Before(billable[j].WorkDate)
		}
		return billable[i].ID < billable[j].ID
	})

	var items []models.InvoiceLineItem
	if opts.CombineByCategory {
		items = e.combinedItems(ctx, projects, billable, opts)
	} else {
		items = e.perRecordItems(projects, billable, opts)
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount)
	}
	taxAmount := subtotal.Mul(opts.TaxRate).Div(decimal.NewFromInt(100)).Round(currencyPlaces)

	result := &Result{
		Items:     items,
		Subtotal:  subtotal,
		TaxRate:   opts.TaxRate,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}
	e.logger.Debug("Aggregation complete",
		zap.Int("records", len(billable)),
		zap.Int("line_items", len(items)),
		zap.String("subtotal", result.Subtotal.String()),
		zap.String("total", result.Total.String()))
	return result, nil
}

// perRecordItems emits one line item per work record.
func (e *Engine) perRecordItems(projects map[int64]*models.Project, records []models.WorkRecord, opts Options) []models.InvoiceLineItem {
	items := make([]models.InvoiceLineItem, 0, len(records))
	for _, rec := range records {
		project := projects[rec.ProjectID]
		item := models.InvoiceLineItem{
			Description:     rec.Description,
			Quantity:        rec.Hours,
			Unit:            "hour",
			Rate:            project.HourlyRate,
			Amount:          rec.Hours.Mul(project.HourlyRate).Round(currencyPlaces),
			Category:        rec.Category,
			SourceRecordIDs: []int64{rec.ID},
		}
		applyEquity(&item, project, rec.Hours, opts)
		items = append(items, item)
	}
	return items
}

// partitionKey identifies one combined line item. Records with a null
// category form their own partition keyed by project alone.
type partitionKey struct {
	projectID int64
	category  string
}

type partition struct {
	key          partitionKey
	category     *string
	hours        decimal.Decimal
	recordIDs    []int64
	descriptions []string
}

// combinedItems partitions records by (project, category) and emits one
// line item per partition. A partition spans exactly one project, so its
// rate is unambiguous. Partitions are ordered by project id then category
// (uncategorized first) for stable output.
func (e *Engine) combinedItems(ctx context.Context, projects map[int64]*models.Project, records []models.WorkRecord, opts Options) []models.InvoiceLineItem {
	partitions := make(map[partitionKey]*partition)
	for _, rec := range records {
		// An empty category label means uncategorized.
		category := rec.Category
		if category != nil && *category == "" {
			category = nil
		}
		key := partitionKey{projectID: rec.ProjectID}
		if category != nil {
			key.category = *category
		}
		p, ok := partitions[key]
		if !ok {
			p = &partition{key: key, category: category, hours: decimal.Zero}
			partitions[key] = p
		}
		p.hours = p.hours.Add(rec.Hours)
		p.recordIDs = append(p.recordIDs, rec.ID)
		p.descriptions = append(p.descriptions, rec.Description)
	}

	ordered := make([]*partition, 0, len(partitions))
	for _, p := range partitions {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].key.projectID != ordered[j].key.projectID {
			return ordered[i].key.projectID < ordered[j].key.projectID
		}
		return ordered[i].key.category < ordered[j].key.category
	})

	items := make([]models.InvoiceLineItem, 0, len(ordered))
	for _, p := range ordered {
		project := projects[p.key.projectID]
		item := models.InvoiceLineItem{
			Description:     e.describePartition(ctx, project, p),
			Quantity:        p.hours,
			Unit:            "hour",
			Rate:            project.HourlyRate,
			Amount:          p.hours.Mul(project.HourlyRate).Round(currencyPlaces),
			Category:        p.category,
			SourceRecordIDs: p.recordIDs,
		}
		applyEquity(&item, project, p.hours, opts)
		items = append(items, item)
	}
	return items
}

// describePartition asks the summarizer for a combined description and
// falls back to a deterministic label on any failure.
func (e *Engine) describePartition(ctx context.Context, project *models.Project, p *partition) string {
	fallback := fallbackDescription(project, p)
	if e.summarizer == nil {
		return fallback
	}

	category := ""
	if p.category != nil {
		category = *p.category
	}
	sumCtx, cancel := context.WithTimeout(ctx, summarizerTimeout)
	defer cancel()
	summary, err := e.summarizer.SummarizeCategory(sumCtx, project.Name, category, p.descriptions)
	if err != nil || summary == "" {
		e.logger.Warn("Summarizer unavailable, using deterministic description",
			zap.String("project", project.Name),
			zap.Error(err))
		return fallback
	}
	return summary
}

func fallbackDescription(project *models.Project, p *partition) string {
	label := "General work"
	if p.category != nil {
		label = *p.category
	}
	if len(p.recordIDs) == 1 {
		return fmt.Sprintf("%s: %s", project.Name, label)
	}
	return fmt.Sprintf("%s: %s (%d entries)", project.Name, label, len(p.recordIDs))
}

// applyEquity attaches the informational equity component. Equity never
// contributes to subtotal, tax or total.
func applyEquity(item *models.InvoiceLineItem, project *models.Project, hours decimal.Decimal, opts Options) {
	if !opts.IncludeEquity || !project.HasEquityTerms() {
		return
	}
	quantity := hours.Mul(*project.EquityAmountPerHour)
	equityType := *project.EquityType
	item.EquityType = &equityType
	item.EquityQuantity = &quantity
	if project.EquityDetails != nil {
		details := *project.EquityDetails
		item.EquityDescription = &details
	}
}
