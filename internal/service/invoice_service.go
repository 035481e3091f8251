package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/invoice-agent/internal/invoice"
	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/garyjia/invoice-agent/internal/repository"
	"github.com/garyjia/invoice-agent/pkg/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GenerateParams describes one invoice generation run.
type GenerateParams struct {
	ClientID          int64
	StartDate         models.Date
	EndDate           models.Date
	IssueDate         models.Date // zero value: today
	DueDate           models.Date // zero value: issue date + configured due period
	TaxRate           decimal.Decimal
	Notes             string
	CombineByCategory bool
	IncludeEquity     bool
	// DryRun performs the full aggregation and returns the would-be
	// invoice without persisting it or consuming any work record.
	DryRun bool
}

// InvoiceService drives invoice generation: it selects billable work
// records, runs the aggregation engine, assembles the invoice, and commits
// the invoice together with the work record consumption in one
// transaction. This is the only path that sets a work record's invoice
// reference.
type InvoiceService struct {
	db        *database.DB
	engine    *invoice.Engine
	assembler *invoice.Assembler
	clients   *repository.ClientRepository
	projects  *repository.ProjectRepository
	records   *repository.WorkRecordRepository
	invoices  *repository.InvoiceRepository
	dueInDays int
	logger    *zap.Logger
}

// NewInvoiceService creates an invoice service.
func NewInvoiceService(
	db *database.DB,
	engine *invoice.Engine,
	assembler *invoice.Assembler,
	clients *repository.ClientRepository,
	projects *repository.ProjectRepository,
	records *repository.WorkRecordRepository,
	invoices *repository.InvoiceRepository,
	dueInDays int,
	logger *zap.Logger,
) *InvoiceService {
	if dueInDays <= 0 {
		dueInDays = 30
	}
	return &InvoiceService{
		db:        db,
		engine:    engine,
		assembler: assembler,
		clients:   clients,
		projects:  projects,
		records:   records,
		invoices:  invoices,
		dueInDays: dueInDays,
		logger:    logger,
	}
}

// Generate builds an invoice from the client's billable work records in
// the date range. Aggregation errors are deterministic precondition
// failures and are never retried here.
func (s *InvoiceService) Generate(ctx context.Context, params GenerateParams) (*models.Invoice, error) {
	if params.EndDate.Before(params.StartDate) {
		return nil, fmt.Errorf("end date %s is before start date %s", params.EndDate, params.StartDate)
	}

	client, err := s.clients.GetByID(params.ClientID)
	if err != nil {
		return nil, err
	}

	records, err := s.records.FindBillable(client.ID, params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}

	projects, err := s.projects.MapByClient(client.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Aggregate(ctx, client, projects, records, invoice.Options{
		CombineByCategory: params.CombineByCategory,
		IncludeEquity:     params.IncludeEquity,
		TaxRate:           params.TaxRate,
	})
	if err != nil {
		return nil, err
	}

	issueDate := params.IssueDate
	if issueDate.IsZero() {
		issueDate = models.Today()
	}
	dueDate := params.DueDate
	if dueDate.IsZero() {
		dueDate = issueDate.AddDays(s.dueInDays)
	}

	number, err := s.invoices.NextInvoiceNumber(issueDate.Year)
	if err != nil {
		return nil, err
	}

	inv := s.assembler.Assemble(invoice.AssembleParams{
		ClientID:      client.ID,
		InvoiceNumber: number,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Notes:         params.Notes,
	}, result)

	if params.DryRun {
		s.logger.Info("Dry run invoice assembled",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Int("line_items", len(inv.Items)),
			zap.String("total", inv.Total.String()))
		return inv, nil
	}

	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.invoices.Create(tx, inv); err != nil {
			return err
		}
		return s.records.MarkInvoiced(tx, invoice.ConsumedRecordIDs(inv), inv.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice generated",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int64("client_id", client.ID),
		zap.Int("line_items", len(inv.Items)),
		zap.String("total", inv.Total.String()))
	return inv, nil
}

// UpdateStatus sets an invoice's status after validating the value.
func (s *InvoiceService) UpdateStatus(invoiceID int64, status models.InvoiceStatus) error {
	return s.invoices.UpdateStatus(invoiceID, status)
}

// MarkOverdue flips every sent invoice whose due date has passed to
// overdue, and returns how many were updated.
func (s *InvoiceService) MarkOverdue(today models.Date) (int, error) {
	sent := models.StatusSent
	invoices, err := s.invoices.List(nil, &sent)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, inv := range invoices {
		if inv.DueDate.Before(today) {
			if err := s.invoices.UpdateStatus(inv.ID, models.StatusOverdue); err != nil {
				return updated, err
			}
			updated++
		}
	}
	return updated, nil
}

// List returns invoices, optionally filtered by client and status.
func (s *InvoiceService) List(clientID *int64, status *models.InvoiceStatus) ([]models.Invoice, error) {
	return s.invoices.List(clientID, status)
}

// Get returns one invoice with its line items.
func (s *InvoiceService) Get(invoiceID int64) (*models.Invoice, error) {
	return s.invoices.GetByID(invoiceID)
}
