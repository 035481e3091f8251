package repository

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/invoice-agent/internal/models"
	"go.uber.org/zap"
)

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

const projectColumns = `
	id, client_id, name, description, hourly_rate, is_active,
	equity_type, equity_amount_per_hour, equity_details,
	start_date, end_date, created_at, updated_at
`

// Create inserts a new project record
func (r *ProjectRepository) Create(project *models.Project) error {
	query := `
		INSERT INTO projects (
			client_id, name, description, hourly_rate, is_active,
			equity_type, equity_amount_per_hour, equity_details, start_date, end_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var startDate, endDate interface{}
	if project.StartDate != nil {
		startDate = project.StartDate.String()
	}
	if project.EndDate != nil {
		endDate = project.EndDate.String()
	}

	result, err := r.db.Exec(query,
		project.ClientID,
		project.Name,
		project.Description,
		project.HourlyRate.String(),
		project.IsActive,
		nullString(project.EquityType),
		nullDecimalString(project.EquityAmountPerHour),
		nullString(project.EquityDetails),
		startDate,
		endDate,
	)
	if err != nil {
		r.logger.Error("Failed to create project", zap.Error(err))
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	project.ID = id
	return nil
}

// GetByID retrieves a project by its identifier
func (r *ProjectRepository) GetByID(id int64) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`

	project, err := scanProject(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get project", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// ListByClient returns every project owned by the client
func (r *ProjectRepository) ListByClient(clientID int64) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE client_id = ? ORDER BY name, id`

	rows, err := r.db.Query(query, clientID)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Int64("client_id", clientID), zap.Error(err))
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

// MapByClient returns the client's projects keyed by project id, the shape
// the aggregation engine consumes.
func (r *ProjectRepository) MapByClient(clientID int64) (map[int64]*models.Project, error) {
	projects, err := r.ListByClient(clientID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Project, len(projects))
	for i := range projects {
		byID[projects[i].ID] = &projects[i]
	}
	return byID, nil
}

// FindByName returns the client's projects whose name matches the given
// text, case-insensitively.
func (r *ProjectRepository) FindByName(clientID int64, name string) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE client_id = ? AND name = ? COLLATE NOCASE ORDER BY id`

	rows, err := r.db.Query(query, clientID, name)
	if err != nil {
		r.logger.Error("Failed to find projects by name",
			zap.Int64("client_id", clientID),
			zap.String("name", name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

// FindByNameAcrossClients returns every project matching the name
// regardless of owner, for resolving texts that name a project but no
// client. More than one match means the caller must disambiguate.
func (r *ProjectRepository) FindByNameAcrossClients(name string) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE name = ? COLLATE NOCASE ORDER BY id`

	rows, err := r.db.Query(query, name)
	if err != nil {
		r.logger.Error("Failed to find projects by name", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to find projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		project          models.Project
		hourlyRate       string
		equityType       sql.NullString
		equityPerHour    sql.NullString
		equityDetails    sql.NullString
		startDate        sql.NullString
		endDate          sql.NullString
	)

	if err := row.Scan(
		&project.ID,
		&project.ClientID,
		&project.Name,
		&project.Description,
		&hourlyRate,
		&project.IsActive,
		&equityType,
		&equityPerHour,
		&equityDetails,
		&startDate,
		&endDate,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rate, err := parseDecimal(hourlyRate)
	if err != nil {
		return nil, err
	}
	project.HourlyRate = rate

	project.EquityType = stringPtr(equityType)
	project.EquityDetails = stringPtr(equityDetails)
	if project.EquityAmountPerHour, err = parseNullDecimal(equityPerHour); err != nil {
		return nil, err
	}

	if startDate.Valid {
		d, err := models.ParseDate(startDate.String)
		if err != nil {
			return nil, err
		}
		project.StartDate = &d
	}
	if endDate.Valid {
		d, err := models.ParseDate(endDate.String)
		if err != nil {
			return nil, err
		}
		project.EndDate = &d
	}

	return &project, nil
}

func scanProjects(rows *sql.Rows) ([]models.Project, error) {
	var projects []models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}
