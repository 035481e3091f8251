package service

import (
	"context"
	"fmt"

	"github.com/garyjia/invoice-agent/internal/extraction"
	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/garyjia/invoice-agent/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Entry is the tagged input variant for logging work: either a manual
// structured entry validated directly, or free-form text routed through
// the structured extractor.
type Entry interface {
	isEntry()
}

// ManualEntry is a structured work log entry supplied field by field.
type ManualEntry struct {
	ProjectID   int64
	WorkDate    models.Date
	Hours       decimal.Decimal
	Description string
	Category    *string
	Billable    bool
	Tags        []string
	// AllowFuture permits a work date in the future; without it a future
	// date is rejected.
	AllowFuture bool
}

func (ManualEntry) isEntry() {}

// FreeFormEntry is natural-language text to be extracted by the model.
type FreeFormEntry struct {
	Text string
	Hint *extraction.ProjectHint
	// AllowFuture permits an extracted work date in the future.
	AllowFuture bool
}

func (FreeFormEntry) isEntry() {}

// WorkLogService creates work records from either entry path and resolves
// extracted client/project names against stored records.
type WorkLogService struct {
	extractor *extraction.Extractor
	clients   *repository.ClientRepository
	projects  *repository.ProjectRepository
	records   *repository.WorkRecordRepository
	logger    *zap.Logger
}

// NewWorkLogService creates a work log service.
func NewWorkLogService(
	extractor *extraction.Extractor,
	clients *repository.ClientRepository,
	projects *repository.ProjectRepository,
	records *repository.WorkRecordRepository,
	logger *zap.Logger,
) *WorkLogService {
	return &WorkLogService{
		extractor: extractor,
		clients:   clients,
		projects:  projects,
		records:   records,
		logger:    logger,
	}
}

// Add creates a work record from the given entry. For free-form entries
// the returned draft carries per-field confidence for user review; for
// manual entries it is nil.
func (s *WorkLogService) Add(ctx context.Context, entry Entry) (*models.WorkRecord, *extraction.RecordDraft, error) {
	switch e := entry.(type) {
	case ManualEntry:
		rec, err := s.addManual(e)
		return rec, nil, err
	case FreeFormEntry:
		return s.addFreeForm(ctx, e)
	default:
		return nil, nil, fmt.Errorf("unknown entry type %T", entry)
	}
}

func (s *WorkLogService) addManual(entry ManualEntry) (*models.WorkRecord, error) {
	payload := map[string]interface{}{
		extraction.FieldDescription: entry.Description,
		extraction.FieldHours:       entry.Hours.String(),
		extraction.FieldBillable:    entry.Billable,
	}
	if !entry.WorkDate.IsZero() {
		payload[extraction.FieldWorkDate] = entry.WorkDate.String()
	}
	if entry.Category != nil {
		payload[extraction.FieldCategory] = *entry.Category
	}
	if len(entry.Tags) > 0 {
		tags := make([]interface{}, len(entry.Tags))
		for i, t := range entry.Tags {
			tags[i] = t
		}
		payload[extraction.FieldTags] = tags
	}

	draft, err := extraction.ValidateRecord(payload, false)
	if err != nil {
		return nil, err
	}

	if draft.WorkDate.After(models.Today()) && !entry.AllowFuture {
		return nil, fmt.Errorf("work date %s is in the future and must be allowed explicitly", draft.WorkDate)
	}

	if _, err := s.projects.GetByID(entry.ProjectID); err != nil {
		return nil, err
	}

	rec := &models.WorkRecord{
		ProjectID:   entry.ProjectID,
		WorkDate:    draft.WorkDate,
		Hours:       draft.Hours,
		Description: draft.Description,
		Category:    draft.Category,
		Billable:    draft.Billable,
		Tags:        draft.Tags,
	}
	if err := s.records.Create(rec); err != nil {
		return nil, err
	}

	s.logger.Info("Work record created",
		zap.Int64("id", rec.ID),
		zap.Int64("project_id", rec.ProjectID),
		zap.String("hours", rec.Hours.String()))
	return rec, nil
}

func (s *WorkLogService) addFreeForm(ctx context.Context, entry FreeFormEntry) (*models.WorkRecord, *extraction.RecordDraft, error) {
	draft, err := s.extractor.Extract(ctx, entry.Text, entry.Hint)
	if err != nil {
		return nil, nil, err
	}

	if draft.WorkDate.After(models.Today()) && !entry.AllowFuture {
		return nil, draft, fmt.Errorf("extracted work date %s is in the future and must be allowed explicitly", draft.WorkDate)
	}

	project, err := s.resolveProject(draft)
	if err != nil {
		return nil, draft, err
	}

	rec := &models.WorkRecord{
		ProjectID:   project.ID,
		WorkDate:    draft.WorkDate,
		Hours:       draft.Hours,
		Description: draft.Description,
		Category:    draft.Category,
		Billable:    draft.Billable,
		Tags:        draft.Tags,
	}
	if err := s.records.Create(rec); err != nil {
		return nil, draft, err
	}

	s.logger.Info("Work record extracted and created",
		zap.Int64("id", rec.ID),
		zap.String("project", project.Name),
		zap.Strings("low_confidence", draft.LowConfidenceFields()))
	return rec, draft, nil
}

// resolveProject maps the draft's free-text client/project names to a
// stored project. An unresolvable or multiply-matching name is surfaced as
// AmbiguousReference; identities are never guessed.
func (s *WorkLogService) resolveProject(draft *extraction.RecordDraft) (*models.Project, error) {
	if draft.Project == "" {
		return nil, &extraction.ExtractionError{
			Reason: extraction.ReasonAmbiguousReference,
			Detail: "no project named in the text; supply a project hint",
		}
	}

	var candidates []models.Project
	if draft.Client != "" {
		clients, err := s.clients.FindByName(draft.Client)
		if err != nil {
			return nil, err
		}
		switch len(clients) {
		case 0:
			return nil, &extraction.ExtractionError{
				Reason: extraction.ReasonAmbiguousReference,
				Detail: fmt.Sprintf("no client named %q", draft.Client),
			}
		case 1:
			candidates, err = s.projects.FindByName(clients[0].ID, draft.Project)
			if err != nil {
				return nil, err
			}
		default:
			return nil, &extraction.ExtractionError{
				Reason: extraction.ReasonAmbiguousReference,
				Detail: fmt.Sprintf("%d clients named %q", len(clients), draft.Client),
			}
		}
	} else {
		var err error
		candidates, err = s.projects.FindByNameAcrossClients(draft.Project)
		if err != nil {
			return nil, err
		}
	}

	switch len(candidates) {
	case 0:
		return nil, &extraction.ExtractionError{
			Reason: extraction.ReasonAmbiguousReference,
			Detail: fmt.Sprintf("no project named %q", draft.Project),
		}
	case 1:
		return &candidates[0], nil
	default:
		return nil, &extraction.ExtractionError{
			Reason: extraction.ReasonAmbiguousReference,
			Detail: fmt.Sprintf("%d projects named %q; supply a project hint", len(candidates), draft.Project),
		}
	}
}

// List returns work records matching the filter.
func (s *WorkLogService) List(filter repository.ListFilter) ([]models.WorkRecord, error) {
	return s.records.List(filter)
}
