package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-agent/internal/models"
	"go.uber.org/zap"
)

// WorkRecordRepository handles work record database operations. Records
// bound to an invoice are immutable: updates and deletes are rejected.
type WorkRecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkRecordRepository creates a new work record repository
func NewWorkRecordRepository(db *sql.DB, logger *zap.Logger) *WorkRecordRepository {
	return &WorkRecordRepository{
		db:     db,
		logger: logger,
	}
}

const workRecordColumns = `
	id, project_id, invoice_id, work_date, hours, description,
	category, billable, tags, created_at, updated_at
`

// Create inserts a new work record
func (r *WorkRecordRepository) Create(rec *models.WorkRecord) error {
	tags, err := marshalTags(rec.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO work_records (project_id, work_date, hours, description, category, billable, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		rec.ProjectID,
		rec.WorkDate.String(),
		rec.Hours.String(),
		rec.Description,
		nullString(rec.Category),
		rec.Billable,
		tags,
	)
	if err != nil {
		r.logger.Error("Failed to create work record", zap.Error(err))
		return fmt.Errorf("failed to create work record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

// GetByID retrieves a work record by its identifier
func (r *WorkRecordRepository) GetByID(id int64) (*models.WorkRecord, error) {
	query := `SELECT ` + workRecordColumns + ` FROM work_records WHERE id = ?`

	rec, err := scanWorkRecord(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("work record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get work record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get work record: %w", err)
	}
	return rec, nil
}

// FindBillable returns the client's billable, not-yet-invoiced work
// records within the date range (inclusive), ordered by date then id.
func (r *WorkRecordRepository) FindBillable(clientID int64, start, end models.Date) ([]models.WorkRecord, error) {
	query := `
		SELECT
			w.id, w.project_id, w.invoice_id, w.work_date, w.hours, w.description,
			w.category, w.billable, w.tags, w.created_at, w.updated_at
		FROM work_records w
		JOIN projects p ON p.id = w.project_id
		WHERE p.client_id = ?
		  AND w.billable = 1
		  AND w.invoice_id IS NULL
		  AND w.work_date >= ?
		  AND w.work_date <= ?
		ORDER BY w.work_date, w.id
	`

	rows, err := r.db.Query(query, clientID, start.String(), end.String())
	if err != nil {
		r.logger.Error("Failed to find billable work records",
			zap.Int64("client_id", clientID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find billable work records: %w", err)
	}
	defer rows.Close()

	return scanWorkRecords(rows)
}

// ListFilter narrows List results.
type ListFilter struct {
	ProjectID    *int64
	Start        *models.Date
	End          *models.Date
	UnbilledOnly bool
}

// List returns work records matching the filter, ordered by date then id
func (r *WorkRecordRepository) List(filter ListFilter) ([]models.WorkRecord, error) {
	var conditions []string
	var args []interface{}

	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Start != nil {
		conditions = append(conditions, "work_date >= ?")
		args = append(args, filter.Start.String())
	}
	if filter.End != nil {
		conditions = append(conditions, "work_date <= ?")
		args = append(args, filter.End.String())
	}
	if filter.UnbilledOnly {
		conditions = append(conditions, "invoice_id IS NULL AND billable = 1")
	}

	query := `SELECT ` + workRecordColumns + ` FROM work_records`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY work_date, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list work records", zap.Error(err))
		return nil, fmt.Errorf("failed to list work records: %w", err)
	}
	defer rows.Close()

	return scanWorkRecords(rows)
}

// Update rewrites a record's mutable fields. Invoiced records are
// immutable and the update is rejected.
func (r *WorkRecordRepository) Update(rec *models.WorkRecord) error {
	tags, err := marshalTags(rec.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE work_records
		SET work_date = ?, hours = ?, description = ?, category = ?,
		    billable = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND invoice_id IS NULL
	`

	result, err := r.db.Exec(query,
		rec.WorkDate.String(),
		rec.Hours.String(),
		rec.Description,
		nullString(rec.Category),
		rec.Billable,
		tags,
		rec.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update work record", zap.Int64("id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to update work record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("work record %d is missing or already invoiced", rec.ID)
	}
	return nil
}

// Delete removes a record. Deleting an invoiced record is rejected rather
// than cascaded.
func (r *WorkRecordRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM work_records WHERE id = ? AND invoice_id IS NULL", id)
	if err != nil {
		r.logger.Error("Failed to delete work record", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete work record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("work record %d is missing or bound to an invoice", id)
	}
	return nil
}

// MarkInvoiced sets the invoice reference on the given records within the
// caller's transaction. Setting it twice is a data integrity violation.
func (r *WorkRecordRepository) MarkInvoiced(tx *sql.Tx, recordIDs []int64, invoiceID int64) error {
	stmt, err := tx.Prepare("UPDATE work_records SET invoice_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND invoice_id IS NULL")
	if err != nil {
		return fmt.Errorf("failed to prepare mark invoiced: %w", err)
	}
	defer stmt.Close()

	for _, id := range recordIDs {
		result, err := stmt.Exec(invoiceID, id)
		if err != nil {
			return fmt.Errorf("failed to mark work record %d invoiced: %w", id, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("work record %d is missing or already invoiced", id)
		}
	}
	return nil
}

func scanWorkRecord(row rowScanner) (*models.WorkRecord, error) {
	var (
		rec       models.WorkRecord
		invoiceID sql.NullInt64
		hours     string
		category  sql.NullString
		tags      string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.ProjectID,
		&invoiceID,
		&rec.WorkDate,
		&hours,
		&rec.Description,
		&category,
		&rec.Billable,
		&tags,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := parseDecimal(hours)
	if err != nil {
		return nil, err
	}
	rec.Hours = parsed
	rec.InvoiceID = int64Ptr(invoiceID)
	rec.Category = stringPtr(category)
	if rec.Tags, err = unmarshalTags(tags); err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanWorkRecords(rows *sql.Rows) ([]models.WorkRecord, error) {
	var records []models.WorkRecord
	for rows.Next() {
		rec, err := scanWorkRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
