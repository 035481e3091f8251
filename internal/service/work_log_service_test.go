package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-agent/internal/ai"
	"github.com/garyjia/invoice-agent/internal/extraction"
	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/garyjia/invoice-agent/internal/repository"
	"github.com/garyjia/invoice-agent/pkg/database"
)

// cannedModel answers every generate call with the same payload.
type cannedModel struct {
	output string
	err    error
}

func (m *cannedModel) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

type workLogFixture struct {
	clients  *repository.ClientRepository
	projects *repository.ProjectRepository
	records  *repository.WorkRecordRepository
	model    *cannedModel
	service  *WorkLogService
}

func newWorkLogFixture(t *testing.T) *workLogFixture {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(repository.Migrations))

	f := &workLogFixture{
		clients:  repository.NewClientRepository(db.DB, logger),
		projects: repository.NewProjectRepository(db.DB, logger),
		records:  repository.NewWorkRecordRepository(db.DB, logger),
		model:    &cannedModel{},
	}
	extractor := extraction.NewExtractor(f.model, 0.1, 500, logger)
	f.service = NewWorkLogService(extractor, f.clients, f.projects, f.records, logger)
	return f
}

func (f *workLogFixture) seed(t *testing.T, clientName, projectName string) (*models.Client, *models.Project) {
	t.Helper()
	client := &models.Client{Name: clientName}
	require.NoError(t, f.clients.Create(client))

	project := &models.Project{
		ClientID:   client.ID,
		Name:       projectName,
		HourlyRate: decimal.NewFromInt(100),
		IsActive:   true,
	}
	require.NoError(t, f.projects.Create(project))
	return client, project
}

func TestAdd_ManualEntry(t *testing.T) {
	f := newWorkLogFixture(t)
	_, project := f.seed(t, "Acme Corp", "Widget Platform")

	category := "Development"
	rec, draft, err := f.service.Add(context.Background(), ManualEntry{
		ProjectID:   project.ID,
		WorkDate:    models.NewDate(2026, 8, 10),
		Hours:       decimal.RequireFromString("2.5"),
		Description: "Implemented exports",
		Category:    &category,
		Billable:    true,
		Tags:        []string{"exports"},
	})
	require.NoError(t, err)
	assert.Nil(t, draft, "manual entries carry no extraction draft")

	got, err := f.records.GetByID(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ProjectID)
	assert.True(t, got.Hours.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "Implemented exports", got.Description)
	assert.Equal(t, []string{"exports"}, got.Tags)
}

func TestAdd_ManualEntryValidation(t *testing.T) {
	f := newWorkLogFixture(t)
	_, project := f.seed(t, "Acme Corp", "Widget Platform")

	t.Run("zero hours rejected", func(t *testing.T) {
		_, _, err := f.service.Add(context.Background(), ManualEntry{
			ProjectID:   project.ID,
			WorkDate:    models.NewDate(2026, 8, 10),
			Hours:       decimal.Zero,
			Description: "free work",
			Billable:    true,
		})
		var schemaErr *extraction.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.True(t, schemaErr.Has(extraction.FieldHours))
	})

	t.Run("empty description rejected", func(t *testing.T) {
		_, _, err := f.service.Add(context.Background(), ManualEntry{
			ProjectID:   project.ID,
			WorkDate:    models.NewDate(2026, 8, 10),
			Hours:       decimal.NewFromInt(1),
			Description: "  ",
			Billable:    true,
		})
		var schemaErr *extraction.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.True(t, schemaErr.Has(extraction.FieldDescription))
	})

	t.Run("future date needs explicit approval", func(t *testing.T) {
		future := models.Today().AddDays(7)
		entry := ManualEntry{
			ProjectID:   project.ID,
			WorkDate:    future,
			Hours:       decimal.NewFromInt(1),
			Description: "planned work",
			Billable:    true,
		}

		_, _, err := f.service.Add(context.Background(), entry)
		require.Error(t, err)

		entry.AllowFuture = true
		rec, _, err := f.service.Add(context.Background(), entry)
		require.NoError(t, err)
		assert.Equal(t, future, rec.WorkDate)
	})

	t.Run("unknown project rejected", func(t *testing.T) {
		_, _, err := f.service.Add(context.Background(), ManualEntry{
			ProjectID:   9999,
			WorkDate:    models.NewDate(2026, 8, 10),
			Hours:       decimal.NewFromInt(1),
			Description: "work",
			Billable:    true,
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestAdd_FreeFormEntry(t *testing.T) {
	f := newWorkLogFixture(t)
	_, project := f.seed(t, "Acme Corp", "Widget Platform")

	f.model.output = `{"client":"Acme Corp","project":"Widget Platform","work_date":"2026-08-12",` +
		`"hours":3,"description":"Refactored the billing module"}`

	rec, draft, err := f.service.Add(context.Background(), FreeFormEntry{
		Text: "spent 3 hours refactoring billing for acme",
	})
	require.NoError(t, err)
	require.NotNil(t, draft)

	assert.Equal(t, project.ID, rec.ProjectID)
	assert.Equal(t, models.NewDate(2026, 8, 12), rec.WorkDate)
	assert.True(t, rec.Hours.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "Refactored the billing module", rec.Description)
}

func TestAdd_FreeFormFutureDate(t *testing.T) {
	f := newWorkLogFixture(t)
	f.seed(t, "Acme Corp", "Widget Platform")

	future := models.Today().AddDays(5)
	f.model.output = `{"project":"Widget Platform","work_date":"` + future.String() +
		`","hours":2,"description":"Scheduled maintenance window"}`

	entry := FreeFormEntry{Text: "two hours of maintenance next week on widget platform"}
	_, draft, err := f.service.Add(context.Background(), entry)
	require.Error(t, err)
	require.NotNil(t, draft, "the draft is returned so the user can correct the date")

	entry.AllowFuture = true
	rec, _, err := f.service.Add(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, future, rec.WorkDate)
}

func TestAdd_FreeFormResolution(t *testing.T) {
	f := newWorkLogFixture(t)
	f.seed(t, "Acme Corp", "Widget Platform")
	f.seed(t, "Globex", "Portal")

	t.Run("unknown client is ambiguous", func(t *testing.T) {
		f.model.output = `{"client":"Initech","project":"Widget Platform","hours":1,"description":"work"}`
		_, _, err := f.service.Add(context.Background(), FreeFormEntry{Text: "an hour for initech"})

		var extErr *extraction.ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.Equal(t, extraction.ReasonAmbiguousReference, extErr.Reason)
	})

	t.Run("unknown project is ambiguous", func(t *testing.T) {
		f.model.output = `{"project":"Mystery Project","hours":1,"description":"work"}`
		_, _, err := f.service.Add(context.Background(), FreeFormEntry{Text: "an hour of mystery"})

		var extErr *extraction.ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.Equal(t, extraction.ReasonAmbiguousReference, extErr.Reason)
	})

	t.Run("no project named and no hint is ambiguous", func(t *testing.T) {
		f.model.output = `{"hours":1,"description":"work"}`
		_, _, err := f.service.Add(context.Background(), FreeFormEntry{Text: "an hour of something"})

		var extErr *extraction.ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.Equal(t, extraction.ReasonAmbiguousReference, extErr.Reason)
	})

	t.Run("hint resolves a nameless text", func(t *testing.T) {
		f.model.output = `{"hours":1,"description":"hinted work"}`
		rec, draft, err := f.service.Add(context.Background(), FreeFormEntry{
			Text: "an hour of work",
			Hint: &extraction.ProjectHint{Client: "Globex", Project: "Portal"},
		})
		require.NoError(t, err)
		assert.Equal(t, "hinted work", rec.Description)
		assert.Equal(t, extraction.ConfidenceDefaulted, draft.Confidence[extraction.FieldProject])
	})

	t.Run("project name shared by two clients is ambiguous", func(t *testing.T) {
		f.seed(t, "Initech", "Portal")
		f.model.output = `{"project":"Portal","hours":1,"description":"work"}`
		_, _, err := f.service.Add(context.Background(), FreeFormEntry{Text: "portal work"})

		var extErr *extraction.ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.Equal(t, extraction.ReasonAmbiguousReference, extErr.Reason)
	})
}

func TestAdd_FreeFormModelUnavailable(t *testing.T) {
	f := newWorkLogFixture(t)
	f.seed(t, "Acme Corp", "Widget Platform")
	f.model.err = &ai.GatewayError{Kind: ai.KindUnavailable}

	_, _, err := f.service.Add(context.Background(), FreeFormEntry{Text: "some work"})

	var extErr *extraction.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, extraction.ReasonModelUnavailable, extErr.Reason)
}
