package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-agent/internal/models"
	"go.uber.org/zap"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists an invoice and its line items. When tx is non-nil the
// write joins the caller's transaction so marking work records invoiced
// commits atomically with the invoice itself.
func (r *InvoiceRepository) Create(tx *sql.Tx, inv *models.Invoice) error {
	var ex execer = r.db
	if tx != nil {
		ex = tx
	}

	query := `
		INSERT INTO invoices (
			client_id, invoice_number, issue_date, due_date, status,
			notes, subtotal, tax_rate, tax_amount, total
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := ex.Exec(query,
		inv.ClientID,
		inv.InvoiceNumber,
		inv.IssueDate.String(),
		inv.DueDate.String(),
		string(inv.Status),
		inv.Notes,
		inv.Subtotal.String(),
		inv.TaxRate.String(),
		inv.TaxAmount.String(),
		inv.Total.String(),
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	inv.ID = id

	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = id
		if err := r.createLineItem(ex, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *InvoiceRepository) createLineItem(ex execer, item *models.InvoiceLineItem) error {
	sourceIDs, err := marshalIDs(item.SourceRecordIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO invoice_line_items (
			invoice_id, description, quantity, unit, rate, amount, category,
			source_record_ids, equity_type, equity_quantity, equity_description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := ex.Exec(query,
		item.InvoiceID,
		item.Description,
		item.Quantity.String(),
		item.Unit,
		item.Rate.String(),
		item.Amount.String(),
		nullString(item.Category),
		sourceIDs,
		nullString(item.EquityType),
		nullDecimalString(item.EquityQuantity),
		nullString(item.EquityDescription),
	)
	if err != nil {
		r.logger.Error("Failed to create invoice line item", zap.Error(err))
		return fmt.Errorf("failed to create invoice line item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	return nil
}

// GetByID retrieves an invoice with its line items
func (r *InvoiceRepository) GetByID(id int64) (*models.Invoice, error) {
	query := `
		SELECT id, client_id, invoice_number, issue_date, due_date, status,
		       notes, subtotal, tax_rate, tax_amount, total
		FROM invoices
		WHERE id = ?
	`

	inv, err := scanInvoice(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if inv.Items, err = r.lineItems(id); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByNumber retrieves an invoice by its unique number
func (r *InvoiceRepository) GetByNumber(number string) (*models.Invoice, error) {
	query := `
		SELECT id, client_id, invoice_number, issue_date, due_date, status,
		       notes, subtotal, tax_rate, tax_amount, total
		FROM invoices
		WHERE invoice_number = ?
	`

	inv, err := scanInvoice(r.db.QueryRow(query, number))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invoice %q: %w", number, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if inv.Items, err = r.lineItems(inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns invoices, optionally filtered by client and status,
// ordered by issue date descending
func (r *InvoiceRepository) List(clientID *int64, status *models.InvoiceStatus) ([]models.Invoice, error) {
	var conditions []string
	var args []interface{}

	if clientID != nil {
		conditions = append(conditions, "client_id = ?")
		args = append(args, *clientID)
	}
	if status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*status))
	}

	query := `
		SELECT id, client_id, invoice_number, issue_date, due_date, status,
		       notes, subtotal, tax_rate, tax_amount, total
		FROM invoices
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY issue_date DESC, id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// UpdateStatus sets an invoice's status
func (r *InvoiceRepository) UpdateStatus(id int64, status models.InvoiceStatus) error {
	result, err := r.db.Exec("UPDATE invoices SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		r.logger.Error("Failed to update invoice status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update invoice status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return nil
}

// NextInvoiceNumber produces the next number in the INV-<year>-<seq>
// sequence for the given year.
func (r *InvoiceRepository) NextInvoiceNumber(year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)

	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM invoices WHERE invoice_number LIKE ?",
		prefix+"%",
	).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("failed to count invoices: %w", err)
	}

	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (r *InvoiceRepository) lineItems(invoiceID int64) ([]models.InvoiceLineItem, error) {
	query := `
		SELECT id, invoice_id, description, quantity, unit, rate, amount, category,
		       source_record_ids, equity_type, equity_quantity, equity_description
		FROM invoice_line_items
		WHERE invoice_id = ?
		ORDER BY id
	`

	rows, err := r.db.Query(query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	var items []models.InvoiceLineItem
	for rows.Next() {
		var (
			item           models.InvoiceLineItem
			quantity       string
			rate           string
			amount         string
			category       sql.NullString
			sourceIDs      string
			equityType     sql.NullString
			equityQuantity sql.NullString
			equityDesc     sql.NullString
		)
		if err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.Description,
			&quantity,
			&item.Unit,
			&rate,
			&amount,
			&category,
			&sourceIDs,
			&equityType,
			&equityQuantity,
			&equityDesc,
		); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}

		if item.Quantity, err = parseDecimal(quantity); err != nil {
			return nil, err
		}
		if item.Rate, err = parseDecimal(rate); err != nil {
			return nil, err
		}
		if item.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if item.SourceRecordIDs, err = unmarshalIDs(sourceIDs); err != nil {
			return nil, err
		}
		item.Category = stringPtr(category)
		item.EquityType = stringPtr(equityType)
		item.EquityDescription = stringPtr(equityDesc)
		if item.EquityQuantity, err = parseNullDecimal(equityQuantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var (
		inv       models.Invoice
		status    string
		subtotal  string
		taxRate   string
		taxAmount string
		total     string
	)

	if err := row.Scan(
		&inv.ID,
		&inv.ClientID,
		&inv.InvoiceNumber,
		&inv.IssueDate,
		&inv.DueDate,
		&status,
		&inv.Notes,
		&subtotal,
		&taxRate,
		&taxAmount,
		&total,
	); err != nil {
		return nil, err
	}

	parsedStatus, err := models.ParseInvoiceStatus(status)
	if err != nil {
		return nil, err
	}
	inv.Status = parsedStatus

	if inv.Subtotal, err = parseDecimal(subtotal); err != nil {
		return nil, err
	}
	if inv.TaxRate, err = parseDecimal(taxRate); err != nil {
		return nil, err
	}
	if inv.TaxAmount, err = parseDecimal(taxAmount); err != nil {
		return nil, err
	}
	if inv.Total, err = parseDecimal(total); err != nil {
		return nil, err
	}
	return &inv, nil
}
