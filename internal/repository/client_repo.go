package repository

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/invoice-agent/internal/models"
	"go.uber.org/zap"
)

// ClientRepository handles client database operations
type ClientRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *sql.DB, logger *zap.Logger) *ClientRepository {
	return &ClientRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new client record
func (r *ClientRepository) Create(client *models.Client) error {
	query := `
		INSERT INTO clients (name, contact_name, email, phone, address, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		client.Name,
		client.ContactName,
		client.Email,
		client.Phone,
		client.Address,
		client.Notes,
	)
	if err != nil {
		r.logger.Error("Failed to create client", zap.Error(err))
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	client.ID = id
	return nil
}

// GetByID retrieves a client by its identifier
func (r *ClientRepository) GetByID(id int64) (*models.Client, error) {
	query := `
		SELECT id, name, contact_name, email, phone, address, notes, created_at, updated_at
		FROM clients
		WHERE id = ?
	`

	client := &models.Client{}
	err := r.db.QueryRow(query, id).Scan(
		&client.ID,
		&client.Name,
		&client.ContactName,
		&client.Email,
		&client.Phone,
		&client.Address,
		&client.Notes,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("client %d: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get client", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return client, nil
}

// FindByName returns clients whose name matches the given text,
// case-insensitively. Multiple matches mean the caller must disambiguate.
func (r *ClientRepository) FindByName(name string) ([]models.Client, error) {
	query := `
		SELECT id, name, contact_name, email, phone, address, notes, created_at, updated_at
		FROM clients
		WHERE name = ? COLLATE NOCASE
		ORDER BY id
	`

	rows, err := r.db.Query(query, name)
	if err != nil {
		r.logger.Error("Failed to find clients by name", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to find clients: %w", err)
	}
	defer rows.Close()

	return scanClients(rows)
}

// List returns all clients ordered by name
func (r *ClientRepository) List() ([]models.Client, error) {
	query := `
		SELECT id, name, contact_name, email, phone, address, notes, created_at, updated_at
		FROM clients
		ORDER BY name, id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to list clients", zap.Error(err))
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	return scanClients(rows)
}

func scanClients(rows *sql.Rows) ([]models.Client, error) {
	var clients []models.Client
	for rows.Next() {
		var client models.Client
		if err := rows.Scan(
			&client.ID,
			&client.Name,
			&client.ContactName,
			&client.Email,
			&client.Phone,
			&client.Address,
			&client.Notes,
			&client.CreatedAt,
			&client.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}
